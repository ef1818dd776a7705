// Command demoserver wires a live ws.Server and an MCAP recording.Sink to
// the same Context and publishes a synthetic sine-wave channel, so that
// a Foxglove Studio instance (or any foxglove.sdk.v1 client) pointed at
// it has something to subscribe to. It is meant as a runnable example of
// embedding this module, not a production deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/internal/diagnostics"
	"github.com/foxglove/foxglove-go/internal/metrics"
	"github.com/foxglove/foxglove-go/recording"
	"github.com/foxglove/foxglove-go/ws"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

func main() {
	var (
		host        string
		port        int
		metricsAddr string
		recordPath  string
	)
	flag.StringVar(&host, "host", "0.0.0.0", "WebSocket bind host")
	flag.IntVar(&port, "port", 8765, "WebSocket bind port")
	flag.StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus /metrics listen address")
	flag.StringVar(&recordPath, "record", "", "if set, also write an MCAP recording to this path")
	flag.Parse()

	if v := os.Getenv("FOXGLOVE_WS_HOST"); v != "" {
		host = v
	}
	if v := os.Getenv("FOXGLOVE_WS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	ctx := fg.DefaultContext()
	runtime := fg.DefaultRuntime()
	m := metrics.NewMetrics()

	config := ws.DefaultConfig()
	config.Server.Host = host
	config.Server.Port = port
	config.Name = "foxglove-go demoserver"
	config.Capabilities = []protocol.Capability{
		protocol.CapabilityClientPublish,
		protocol.CapabilityParameters,
		protocol.CapabilityTime,
		protocol.CapabilityServices,
		protocol.CapabilityConnectionGraph,
	}

	server := ws.NewServer(config, ctx, runtime)
	server.SetMetrics(m)

	server.RegisterService(&ws.Service{
		Name:           "echo",
		RequestSchema:  "",
		ResponseSchema: "",
		Type:           "echo",
		Handler: func(request []byte, encoding string) ([]byte, string, error) {
			return request, encoding, nil
		},
	})

	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			log.Fatalf("demoserver: create recording file: %v", err)
		}
		defer f.Close()

		recorder, err := recording.NewSink(f, "foxglove-go-demo", recording.WithMetrics(m))
		if err != nil {
			log.Fatalf("demoserver: create mcap sink: %v", err)
		}
		defer recorder.Close()
		ctx.AddSink(recorder)
	}

	collector := diagnostics.NewCollector(prometheus.DefaultRegisterer, 5*time.Second)
	diagCtx, cancelDiag := context.WithCancel(context.Background())
	go collector.Run(diagCtx)
	defer cancelDiag()

	if err := server.Start(); err != nil {
		log.Fatalf("demoserver: start ws server: %v", err)
	}
	log.Printf("demoserver: listening on ws://%s:%d (subprotocol %s)", host, port, protocol.Subprotocol)

	go serveMetrics(metricsAddr)

	channel, err := fg.ChannelBuilder{
		Topic:           "/demo/sine",
		MessageEncoding: "json",
		Context:         ctx,
	}.Build()
	if err != nil {
		log.Fatalf("demoserver: register channel: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-stop:
			log.Printf("demoserver: shutting down")
			server.Stop()
			runtime.Stop()
			return
		case t := <-ticker.C:
			elapsed := t.Sub(start).Seconds()
			payload, err := json.Marshal(struct {
				Value float64 `json:"value"`
			}{Value: math.Sin(elapsed)})
			if err != nil {
				continue
			}
			channel.Log(payload, fg.PartialMetadata{})
		}
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Printf("demoserver: metrics server error: %v", err)
	}
}
