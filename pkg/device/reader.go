package device

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/models"
)

const (
	DefaultSNMPTimeout = 2 * time.Second
	DefaultWebTimeout  = 3 * time.Second

	StatusPagePath = "/general/status.html"

	// full-scale pixel height of the toner gauge image
	tonerGaugeHeight = 60

	tonerGaugeSelector = "img.tonerremain"
	statusSelector     = "#moni_data"
)

// Snapshot is what one fetch learned about a device. Nil pointers are
// unknown values.
type Snapshot struct {
	Online       bool
	PrinterType  *string
	SerialNumber *string
	DrumUnit     *int64
	PageCounter  *int64
	TonerLevel   *int64
	TonerFromWeb bool
	Condition    Condition
}

func offlineSnapshot() Snapshot {
	return Snapshot{Condition: Condition{Severity: models.SeverityUnknown}}
}

// Reader fetches device health over SNMP with a status-page fallback.
type Reader struct {
	SNMP        SNMPClient
	HTTP        *http.Client
	SNMPTimeout time.Duration
	// StatusURL builds the status page address for an ip.
	StatusURL func(ip string) string
}

func DefaultStatusURL(ip string) string {
	return "http://" + ip + StatusPagePath
}

func NewReader(snmp SNMPClient, snmpTimeout, webTimeout time.Duration) *Reader {
	return &Reader{
		SNMP:        snmp,
		HTTP:        &http.Client{Timeout: webTimeout},
		SNMPTimeout: snmpTimeout,
		StatusURL:   DefaultStatusURL,
	}
}

// Fetch never fails: transport and parse errors degrade the snapshot.
func (r *Reader) Fetch(ctx context.Context, ip string) Snapshot {
	logger := common.GetCoreLogger(common.LoggerCategoryDevice).With(zap.String("ip", ip))

	snmpCtx, cancel := context.WithTimeout(ctx, r.SNMPTimeout)
	pdus, err := r.SNMP.Get(snmpCtx, ip, queryOIDs)
	cancel()
	if err != nil {
		logger.Warn("Device unreachable", zap.Error(err))
		return offlineSnapshot()
	}

	snap := Snapshot{
		Online:       true,
		PageCounter:  intValue(pdus, OIDPageCounter),
		PrinterType:  stringValue(pdus, OIDPrinterType),
		DrumUnit:     intValue(pdus, OIDDrumUnitLife),
		TonerLevel:   intValue(pdus, OIDTonerLevel),
		SerialNumber: stringValue(pdus, OIDSerialNumber),
		Condition:    Condition{Severity: models.SeverityUnknown},
	}

	doc, err := r.statusPage(ctx, ip)
	if err != nil {
		logger.Info("Status page scrape failed", zap.Error(err))
		if tonerNeedsFallback(snap.TonerLevel) {
			snap.TonerLevel = nil
		}
		return snap
	}

	if cond, ok := ConditionFromPage(doc); ok {
		snap.Condition = cond
	}

	if tonerNeedsFallback(snap.TonerLevel) {
		snap.TonerLevel = TonerFromPage(doc)
		snap.TonerFromWeb = snap.TonerLevel != nil
	}

	return snap
}

// Sentinel readings (-2 unknown, -3 some remaining) come back negative.
func tonerNeedsFallback(level *int64) bool {
	return level == nil || *level < 0
}

func (r *Reader) statusPage(ctx context.Context, ip string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.StatusURL(ip), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status page returned %s", resp.Status)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// TonerFromPage converts the gauge image height to a percentage of
// full scale. A missing gauge or height reads as 0; a height that is not a
// number is unknown.
func TonerFromPage(doc *goquery.Document) *int64 {
	height := doc.Find(tonerGaugeSelector).First().AttrOr("height", "0")
	h, ok := parseLeadingInt(height)
	if !ok {
		return nil
	}
	percent := int64(math.Floor(float64(h)/tonerGaugeHeight*100 + 0.5))
	return &percent
}

// ConditionFromPage reads the status container. The first span carries the
// text, class and style; the container itself is the fallback for each.
func ConditionFromPage(doc *goquery.Document) (Condition, bool) {
	container := doc.Find(statusSelector).First()
	if container.Length() == 0 {
		return Condition{}, false
	}

	span := container.Find("span").First()

	text := strings.TrimSpace(span.Text())
	if text == "" {
		text = strings.TrimSpace(container.Text())
	}

	class := span.AttrOr("class", "")
	if class == "" {
		class = container.AttrOr("class", "")
	}
	style := span.AttrOr("style", "")
	if style == "" {
		style = container.AttrOr("style", "")
	}

	severity, bg := Classify(class, style)
	return Condition{Severity: severity, Text: text, Background: bg}, true
}
