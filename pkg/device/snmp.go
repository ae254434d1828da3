package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Printer-MIB / Host-Resources OIDs, in query order.
const (
	OIDPageCounter  = "1.3.6.1.2.1.43.10.2.1.4.1.1"
	OIDPrinterType  = "1.3.6.1.2.1.25.3.2.1.3.1"
	OIDDrumUnitLife = "1.3.6.1.2.1.43.11.1.1.9.1.2"
	OIDTonerLevel   = "1.3.6.1.2.1.43.11.1.1.9.1.1"
	OIDSerialNumber = "1.3.6.1.2.1.43.5.1.1.17.1"
)

var queryOIDs = []string{
	OIDPageCounter,
	OIDPrinterType,
	OIDDrumUnitLife,
	OIDTonerLevel,
	OIDSerialNumber,
}

var (
	ErrSNMPGetFailed = errors.New("snmp get failed")
	ErrSNMPError     = errors.New("snmp error status")
)

// SNMPClient issues one GET for oids against target.
type SNMPClient interface {
	Get(ctx context.Context, target string, oids []string) ([]gosnmp.SnmpPDU, error)
}

// GoSNMPClient is a read-only v2c client with no retries.
type GoSNMPClient struct {
	Community string
	Port      uint16
	Timeout   time.Duration
}

func NewGoSNMPClient(community string, port uint16, timeout time.Duration) *GoSNMPClient {
	return &GoSNMPClient{Community: community, Port: port, Timeout: timeout}
}

func (c *GoSNMPClient) Get(ctx context.Context, target string, oids []string) ([]gosnmp.SnmpPDU, error) {
	client := &gosnmp.GoSNMP{
		Target:    target,
		Port:      c.Port,
		Community: c.Community,
		Version:   gosnmp.Version2c,
		Timeout:   c.Timeout,
		Retries:   0,
		Context:   ctx,
		MaxOids:   len(oids),
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSNMPGetFailed, err)
	}
	defer client.Conn.Close()

	result, err := client.Get(oids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSNMPGetFailed, err)
	}
	if result.Error != gosnmp.NoError {
		return nil, fmt.Errorf("%w %s", ErrSNMPError, result.Error)
	}

	return result.Variables, nil
}

func pduAt(pdus []gosnmp.SnmpPDU, oid string) (gosnmp.SnmpPDU, bool) {
	for _, pdu := range pdus {
		if strings.TrimPrefix(pdu.Name, ".") == oid {
			return pdu, true
		}
	}
	return gosnmp.SnmpPDU{}, false
}

func pduText(pdu gosnmp.SnmpPDU) (string, bool) {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return "", false
	}
	switch v := pdu.Value.(type) {
	case nil:
		return "", false
	case []byte:
		return string(v), true
	case string:
		return v, true
	default:
		return fmt.Sprint(v), true
	}
}

// stringValue decodes a textual varbind; empty text is unknown.
func stringValue(pdus []gosnmp.SnmpPDU, oid string) *string {
	pdu, ok := pduAt(pdus, oid)
	if !ok {
		return nil
	}
	s, ok := pduText(pdu)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// intValue decodes a numeric varbind. Anything without a leading integer is
// unknown, never zero.
func intValue(pdus []gosnmp.SnmpPDU, oid string) *int64 {
	pdu, ok := pduAt(pdus, oid)
	if !ok {
		return nil
	}
	s, ok := pduText(pdu)
	if !ok {
		return nil
	}
	n, ok := parseLeadingInt(s)
	if !ok {
		return nil
	}
	return &n
}

// parseLeadingInt reads an optionally signed run of digits after leading
// whitespace and ignores the rest ("30px" -> 30).
func parseLeadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
