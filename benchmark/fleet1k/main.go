package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	pwGrpc "liyu1981.xyz/printwatch-service/pkg/grpc"
)

// Most addresses are unreachable on purpose: a refresh has to finish within
// the SNMP timeout no matter how many devices hang.
var maxPrinters int = 1000
var httpHostPort string = "127.0.0.1:3000"
var grpcHostPort string = "127.0.0.1:3001"

var grpcClient *pwGrpc.MonitorClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))

func main() {
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = pwGrpc.NewMonitorClient(conn)

	fmt.Printf("gRPC client ready\n")

	// lift the refresh limiter for the run
	if _, err := grpcClient.SetLimiter(context.Background(), mustStruct(map[string]any{"rate": 1000, "burst": 1000})); err != nil {
		log.Fatal("Failed to lift refresh limiter:", err)
	}

	var startTime time.Time
	var usedTime time.Duration

	startTime = time.Now()
	ids := make([]string, maxPrinters)
	var registered atomic.Int32
	wg := sync.WaitGroup{}
	for i := range maxPrinters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = registerPrinter(i)
			fmt.Printf("\rregistered printer %v", registered.Add(1))
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\rregistered %v printers: used time=%v seconds, throughput=%v action/second\n",
		maxPrinters, usedTime.Seconds(), float64(maxPrinters)/usedTime.Seconds(),
	)

	for round := range 3 {
		startTime = time.Now()
		report := refresh(round%2 == 0)
		usedTime = time.Since(startTime)

		fmt.Printf(
			"refresh round %v: used time=%v seconds, total=%v online=%v offline=%v\n",
			round, usedTime.Seconds(),
			report.GetFields()["total"].GetNumberValue(),
			report.GetFields()["online"].GetNumberValue(),
			report.GetFields()["offline"].GetNumberValue(),
		)
	}

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			getPrinter(ids[rnd.Intn(len(ids))])
			fmt.Printf("\rread printer detail %v", i)
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf("\rread 100 printer details: used time=%v seconds\n", usedTime.Seconds())
}

func mustStruct(m map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(m)
	if err != nil {
		panic(err)
	}
	return s
}

// registerPrinter spreads printers over 10.99.0.0/16, which nothing answers.
func registerPrinter(i int) string {
	payload := map[string]string{
		"ip_address": fmt.Sprintf("10.99.%d.%d", i/250, i%250+1),
	}
	jsonData, _ := json.Marshal(payload)
	resp, err := http.Post(fmt.Sprintf("http://%s/printers", httpHostPort), "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		panic(fmt.Sprintf("register printer: status %v", resp.Status))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		panic(err)
	}
	return created.ID
}

func refresh(useHttp bool) *structpb.Struct {
	if useHttp {
		resp, err := http.Post(fmt.Sprintf("http://%s/printers/refresh", httpHostPort), "application/json", nil)
		if err != nil {
			log.Fatal("refresh failed:", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Fatal("refresh failed: ", resp.Status)
		}
		var report map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			log.Fatal("refresh decode failed:", err)
		}
		return mustStruct(report)
	}

	report, err := grpcClient.Refresh(context.Background(), mustStruct(map[string]any{}))
	if err != nil {
		log.Fatal("refresh failed:", err)
	}
	return report
}

func getPrinter(id string) {
	useHttp := rnd.Int31n(2) == 0

	if useHttp {
		resp, err := http.Get(fmt.Sprintf("http://%s/printers/%s", httpHostPort, id))
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("\nresponse status code != 200: %v\n", resp.Status)
		}
		return
	}

	if _, err := grpcClient.GetPrinter(context.Background(), mustStruct(map[string]any{"printer_id": id})); err != nil {
		fmt.Printf("\nerror: %v\n", err)
	}
}
