package feed

import (
	"context"
	"testing"
	"time"
)

func TestMockFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := NewMockFeed()

	statusCh := make(chan bool, 1)
	go mock.Run(ctx, func(c bool) { statusCh <- c })

	select {
	case c := <-statusCh:
		if !c {
			t.Fatal("expected connected status")
		}
	case <-time.After(time.Second):
		t.Fatal("no status")
	}

	mock.SendMessage(`[{"symbol":"Gram Altın","sell":"4010"}]`)

	select {
	case got := <-mock.Messages():
		if len(got) == 0 {
			t.Fatal("empty message")
		}
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	mock.Close()
}
