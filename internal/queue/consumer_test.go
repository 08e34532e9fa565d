package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestFormatEvent(t *testing.T) {
	is := is.New(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	line := formatEvent(SearchPerformedEvent{Name: "Pizza", MinVotes: 0, MaxVotes: 1000, Results: 2, RemoteIP: "10.0.0.1", OccurredAt: at})
	is.Equal(line, `2024-03-01T12:00:00Z search name="Pizza" votes=[0,1000] results=2 ip=10.0.0.1`)

	line = formatEvent(SearchPerformedEvent{MaxVotes: 5, Degraded: true, OccurredAt: at})
	is.Equal(line, `2024-03-01T12:00:00Z search name="*" votes=[0,5] results=0 degraded=true`)
}

func TestAppendEventWritesOneLinePerMessage(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "audit", "search.log")

	for i := 0; i < 2; i++ {
		body, err := json.Marshal(SearchPerformedEvent{Name: "Taco", MaxVotes: 10, Results: i})
		is.NoErr(err)
		is.NoErr(appendEvent(path, body))
	}

	data, err := os.ReadFile(path)
	is.NoErr(err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	is.Equal(len(lines), 2)
	is.True(strings.HasSuffix(lines[1], "results=1"))
}

func TestAppendEventRejectsGarbage(t *testing.T) {
	is := is.New(t)
	err := appendEvent(filepath.Join(t.TempDir(), "x.log"), []byte("not json"))
	is.True(err != nil)
}

func TestDisabledPublisherDropsEvents(t *testing.T) {
	is := is.New(t)
	p := NewPublisher("")
	is.True(!p.Enabled())
	is.NoErr(p.PublishSearch(context.Background(), SearchPerformedEvent{}))
}

func TestPublishSearchDropsWhenBufferFull(t *testing.T) {
	is := is.New(t)
	// no sender goroutine, so nothing drains the buffer
	p := &Publisher{url: "amqp://localhost/", events: make(chan SearchPerformedEvent, 1), done: make(chan struct{})}

	is.NoErr(p.PublishSearch(context.Background(), SearchPerformedEvent{Name: "first"}))
	is.True(errors.Is(p.PublishSearch(context.Background(), SearchPerformedEvent{Name: "second"}), ErrBufferFull))
	is.Equal((<-p.events).Name, "first")
}

func TestPublishSearchAfterCloseIsRejected(t *testing.T) {
	is := is.New(t)
	p := &Publisher{url: "amqp://localhost/", events: make(chan SearchPerformedEvent, 1), done: make(chan struct{})}
	is.NoErr(p.Close())
	is.NoErr(p.Close())
	is.True(errors.Is(p.PublishSearch(context.Background(), SearchPerformedEvent{}), ErrPublisherClosed))
}

func TestPublishSearchDoesNotWaitForSilentBroker(t *testing.T) {
	is := is.New(t)
	addr := silentListener(t)
	p := NewPublisher("amqp://guest:guest@" + addr + "/")
	t.Cleanup(func() { _ = p.Close() })

	start := time.Now()
	for i := 0; i < 5; i++ {
		is.NoErr(p.PublishSearch(context.Background(), SearchPerformedEvent{Results: i}))
	}
	is.True(time.Since(start) < 200*time.Millisecond)
}

// silentListener accepts TCP connections and never writes to them.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestConsumerRequiresURL(t *testing.T) {
	is := is.New(t)
	c := &Consumer{}
	is.True(c.Run(context.Background()) != nil)
}
