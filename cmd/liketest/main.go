// Package main provides a stress testing tool for concurrent likes and the live event stream.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	Requests         int64
	Failures         int64
	StateChanges     int64
	EventsReceived   int64
	DroppedNotices   int64
	WatchersFailed   int64
	WatchersAttached int64
}

var metrics Metrics

type likeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

func main() {
	host := flag.String("host", "localhost:8000", "API server host")
	actors := flag.Int("actors", 50, "Number of concurrent actors")
	watchers := flag.Int("watchers", 5, "Number of event stream watchers")
	duration := flag.Duration("duration", 20*time.Second, "Test duration")
	flag.Parse()

	log.Printf("🚀 Starting Like Stress Test")
	log.Printf("Target: %s", *host)
	log.Printf("Actors: %d, watchers: %d", *actors, *watchers)
	log.Printf("Duration: %v", *duration)

	postID, err := createPost(*host)
	if err != nil {
		log.Fatalf("❌ Could not create target post: %v", err)
	}
	log.Printf("✅ Target post %d created", postID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *watchers; i++ {
		wg.Add(1)
		go watch(*host, i, stopChan, &wg)
	}

	// Each actor's last confirmed state, to check the final count.
	final := make([]atomic.Bool, *actors)
	for i := 0; i < *actors; i++ {
		wg.Add(1)
		go runActor(*host, postID, i, &final[i], stopChan, &wg)
	}

	select {
	case <-time.After(*duration):
		log.Println("⏱️  Test duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for actors and watchers to stop...")
	wg.Wait()

	var expected int64
	for i := range final {
		if final[i].Load() {
			expected++
		}
	}
	got, err := likeCount(*host, postID)
	if err != nil {
		log.Printf("❌ Could not read final like count: %v", err)
	} else if got != expected {
		log.Printf("❌ Like count mismatch: server=%d expected=%d", got, expected)
	} else {
		log.Printf("✅ Like count consistent: %d", got)
	}

	printMetrics()
}

func createPost(host string) (uint, error) {
	body, _ := json.Marshal(map[string]string{"body": "like stress target"})
	req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s/api/posts", host), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "liketest-author")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("create post failed with status %d", resp.StatusCode)
	}

	var post struct {
		ID uint `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return 0, err
	}
	return post.ID, nil
}

func likeCount(host string, postID uint) (int64, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/api/posts/%d", host, postID))
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	var post struct {
		LikeCount int64 `json:"like_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return 0, err
	}
	return post.LikeCount, nil
}

func runActor(host string, postID uint, id int, state *atomic.Bool, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	client := &http.Client{Timeout: 5 * time.Second}
	target := fmt.Sprintf("http://%s/api/posts/%d/like", host, postID)
	username := fmt.Sprintf("liketest-%d", id)
	rng := rand.New(rand.NewSource(int64(id)))

	for {
		select {
		case <-stopChan:
			return
		default:
		}

		method := http.MethodPost
		if rng.Intn(2) == 0 {
			method = http.MethodDelete
		}
		req, _ := http.NewRequest(method, target, nil)
		req.Header.Set("X-User", username)

		atomic.AddInt64(&metrics.Requests, 1)
		resp, err := client.Do(req)
		if err != nil {
			atomic.AddInt64(&metrics.Failures, 1)
			continue
		}

		var st likeState
		decodeErr := json.NewDecoder(resp.Body).Decode(&st)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || decodeErr != nil {
			atomic.AddInt64(&metrics.Failures, 1)
			continue
		}
		if state.Swap(st.Liked) != st.Liked {
			atomic.AddInt64(&metrics.StateChanges, 1)
		}

		time.Sleep(time.Duration(rng.Intn(50)) * time.Millisecond)
	}
}

func watch(host string, id int, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws"}
	header := http.Header{}
	header.Set("X-User", fmt.Sprintf("liketest-watcher-%d", id))

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		atomic.AddInt64(&metrics.WatchersFailed, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.WatchersAttached, 1)

	go func() {
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(msg, &env) == nil && env.Type == "messages_dropped" {
				atomic.AddInt64(&metrics.DroppedNotices, 1)
				continue
			}
			atomic.AddInt64(&metrics.EventsReceived, 1)
		}
	}()

	<-stopChan
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func printMetrics() {
	log.Println("\n📊 Test Results")
	log.Println("===============")
	log.Printf("Requests: %d", atomic.LoadInt64(&metrics.Requests))
	log.Printf("Failures: %d", atomic.LoadInt64(&metrics.Failures))
	log.Printf("Observed state changes: %d", atomic.LoadInt64(&metrics.StateChanges))
	log.Printf("Watchers attached: %d (failed %d)", atomic.LoadInt64(&metrics.WatchersAttached), atomic.LoadInt64(&metrics.WatchersFailed))
	log.Printf("Events received: %d", atomic.LoadInt64(&metrics.EventsReceived))
	log.Printf("Dropped notices: %d", atomic.LoadInt64(&metrics.DroppedNotices))
}
