// Command sse_load opens many subscribers on the conversion stream and
// optionally drives conversions through the API so the stream has traffic.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	events      atomic.Int64
	converts    atomic.Int64
	convertErrs atomic.Int64
}

func main() {
	var (
		baseURL      string
		connections  int
		testDuration time.Duration
		rampUp       time.Duration
		convertEvery time.Duration
		pair         string
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "converter web address")
	flag.IntVar(&connections, "conns", 500, "number of concurrent stream subscribers")
	flag.DurationVar(&testDuration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", 0, "spread subscriber starts across this window")
	flag.DurationVar(&convertEvery, "convert", time.Second, "post a conversion this often (0 disables)")
	flag.StringVar(&pair, "pair", "USD_EUR", "pair used for generated conversions")
	flag.Parse()

	if connections <= 0 {
		log.Fatalf("invalid conns: %d", connections)
	}
	from, to, ok := strings.Cut(pair, "_")
	if !ok {
		log.Fatalf("invalid pair: %s", pair)
	}
	if rampUp == 0 && connections > 100 {
		rampUp = time.Duration(connections/500+1) * time.Second
		log.Printf("no ramp-up specified, using %s", rampUp)
	}

	streamURL := strings.TrimRight(baseURL, "/") + "/api/conversions/stream"
	convertURL := strings.TrimRight(baseURL, "/") + "/api/convert"
	log.Printf("starting load: stream=%s conns=%d duration=%s ramp=%s convert=%s", streamURL, connections, testDuration, rampUp, convertEvery)

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 100,
			MaxIdleConns:        connections + 100,
			MaxIdleConnsPerHost: connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	var (
		c     counters
		wg    sync.WaitGroup
		start = time.Now()
	)

	if convertEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			produce(ctx, client, convertURL, from, to, convertEvery, &c)
		}()
	}

	var interval time.Duration
	if rampUp > 0 {
		interval = rampUp / time.Duration(connections)
	}

	for i := 0; i < connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			subscribe(ctx, client, streamURL, &c)
		}()
	}

	go report(ctx, start, &c)

	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("done: connected=%d connect_errs=%d stream_errs=%d events=%d converts=%d convert_errs=%d elapsed=%s events/s=%.2f\n",
		c.connected.Load(), c.connectErrs.Load(), c.streamErrs.Load(), c.events.Load(),
		c.converts.Load(), c.convertErrs.Load(), elapsed.Truncate(time.Millisecond),
		float64(c.events.Load())/elapsed.Seconds())

	if c.connectErrs.Load() > 0 {
		os.Exit(1)
	}
}

// subscribe reads the stream until ctx ends and counts conversion events.
func subscribe(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}

	c.connected.Add(1)
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				c.streamErrs.Add(1)
			}
			return
		}
		if strings.HasPrefix(line, "event: conversion") {
			c.events.Add(1)
		}
	}
}

// produce posts a conversion every interval with a growing amount.
func produce(ctx context.Context, client *http.Client, url, from, to string, interval time.Duration, c *counters) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		body := fmt.Sprintf(`{"amount":"%d","from":%q,"to":%q}`, n, from, to)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(body))
		if err != nil {
			c.convertErrs.Add(1)
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			c.convertErrs.Add(1)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			c.convertErrs.Add(1)
			continue
		}
		c.converts.Add(1)
	}
}

func report(ctx context.Context, start time.Time, c *counters) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("status: connected=%d connect_errs=%d stream_errs=%d events=%d converts=%d elapsed=%s",
				c.connected.Load(), c.connectErrs.Load(), c.streamErrs.Load(), c.events.Load(),
				c.converts.Load(), time.Since(start).Truncate(time.Second))
		}
	}
}
