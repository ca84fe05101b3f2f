package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShivamG1979/FeedBack-Backeng/client"
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/logger"
)

// Configuration
var (
	targetURL   = flag.String("url", "http://localhost:8080", "Service base URL")
	concurrency = flag.Int("c", 50, "Concurrent submitters")
	total       = flag.Int("n", 5000, "Total feedback submissions")
	watch       = flag.Bool("watch", true, "Measure change stream propagation latency")
	cleanup     = flag.Bool("cleanup", false, "Delete every submitted record afterwards")
)

// Metrics
var (
	submitted    int64
	rateLimited  int64
	submitErrors int64
	latencySum   int64 // microseconds
	latencyCount int64
	eventsRx     int64
	propSum      int64 // milliseconds
	propCount    int64
)

func main() {
	flag.Parse()
	logger.InitLogger("loadtest")
	defer logger.Sync()

	fmt.Printf("🚀 Starting Load Test\n")
	fmt.Printf("   Target: %s\n", *targetURL)
	fmt.Printf("   Concurrency: %d\n", *concurrency)
	fmt.Printf("   Submissions: %d\n", *total)

	http.DefaultTransport.(*http.Transport).MaxIdleConnsPerHost = *concurrency

	c := client.NewFeedbackClient(*targetURL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *watch {
		go func() {
			_ = c.Watch(ctx, func(ev v1.Event) {
				if ev.Action != constraints.Created || ev.Feedback == nil {
					return
				}
				atomic.AddInt64(&eventsRx, 1)
				lat := time.Since(ev.Feedback.Timestamp).Milliseconds()
				// Filter reasonable range to avoid clock skew weirdness
				if lat >= 0 && lat < 10000 {
					atomic.AddInt64(&propSum, lat)
					atomic.AddInt64(&propCount, 1)
				}
			})
		}()
	}

	// Metric Reporter
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report()
			}
		}
	}()

	jobs := make(chan int)
	var ids sync.Map
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				submit(ctx, c, i, &ids)
			}
		}()
	}
	for i := 0; i < *total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	// give the stream a moment to drain
	if *watch {
		time.Sleep(time.Second)
	}
	report()
	fmt.Printf("✅ Done in %v (%.1f req/s)\n", elapsed.Round(time.Millisecond), float64(*total)/elapsed.Seconds())

	if *cleanup {
		var deleted int
		ids.Range(func(key, _ any) bool {
			if _, err := c.Delete(ctx, key.(string)); err == nil {
				deleted++
			}
			return true
		})
		fmt.Printf("🧹 Deleted %d records\n", deleted)
	}
}

func submit(ctx context.Context, c *client.FeedbackClient, i int, ids *sync.Map) {
	begin := time.Now()
	fb, err := c.Submit(ctx, v1.FeedbackInput{
		Name:    fmt.Sprintf("loadtest-%d", i),
		Email:   fmt.Sprintf("user%d@loadtest.local", i),
		Message: fmt.Sprintf("load test message %d", i),
	})
	if err != nil {
		if errors.Is(err, client.ErrRateLimited) {
			atomic.AddInt64(&rateLimited, 1)
			return
		}
		if atomic.AddInt64(&submitErrors, 1) == 1 {
			fmt.Printf("Error submitting: %v\n", err)
		}
		return
	}
	atomic.AddInt64(&submitted, 1)
	atomic.AddInt64(&latencySum, time.Since(begin).Microseconds())
	atomic.AddInt64(&latencyCount, 1)
	ids.Store(fb.ID, struct{}{})
}

func report() {
	latCnt := atomic.SwapInt64(&latencyCount, 0)
	latSum := atomic.SwapInt64(&latencySum, 0)
	pCnt := atomic.SwapInt64(&propCount, 0)
	pSum := atomic.SwapInt64(&propSum, 0)

	avgLat := float64(0)
	if latCnt > 0 {
		avgLat = float64(latSum) / float64(latCnt) / 1000
	}
	avgProp := float64(0)
	if pCnt > 0 {
		avgProp = float64(pSum) / float64(pCnt)
	}

	fmt.Printf("[%s] Submitted: %d | 429: %d | Errors: %d | Events: %d | Avg Latency: %.2f ms | Avg Propagation: %.2f ms\n",
		time.Now().Format("15:04:05"),
		atomic.LoadInt64(&submitted), atomic.LoadInt64(&rateLimited), atomic.LoadInt64(&submitErrors),
		atomic.LoadInt64(&eventsRx), avgLat, avgProp)
}
