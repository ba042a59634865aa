// Command bus-selftest exercises the message bus end to end and prints a
// PASS/FAIL line per check. It runs on the host and, flashed with TinyGo,
// on the board itself, where go test cannot follow.
package main

import (
	"context"
	"time"

	"gpioblink-go/bus"
)

type check struct {
	name string
	fn   func() bool
}

func main() {
	// Give USB CDC time to enumerate so no output is lost on device.
	time.Sleep(250 * time.Millisecond)

	checks := []check{
		{"basic_pubsub", checkBasicPubSub},
		{"retained", checkRetained},
		{"retained_clear", checkRetainedClear},
		{"wildcard_one", checkWildcardOne},
		{"wildcard_rest", checkWildcardRest},
		{"request_reply", checkRequestReply},
		{"request_timeout", checkRequestTimeout},
	}

	failed := 0
	println("== bus self-test ==")
	for _, c := range checks {
		if c.fn() {
			println("PASS", c.name)
		} else {
			println("FAIL", c.name)
			failed++
		}
	}
	if failed == 0 {
		println("== all checks passed ==")
		return
	}
	println("== FAILURES:", failed, "==")
	// Stay alive on device so the failure summary remains visible.
	select {}
}

func recvString(sub *bus.Subscription, want string, d time.Duration) bool {
	select {
	case msg := <-sub.Channel():
		s, ok := msg.Payload.(string)
		return ok && s == want
	case <-time.After(d):
		return false
	}
}

func silent(sub *bus.Subscription, d time.Duration) bool {
	select {
	case <-sub.Channel():
		return false
	case <-time.After(d):
		return true
	}
}

func checkBasicPubSub() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("selftest")
	sub := c.Subscribe(bus.T("config", "blinker"))
	c.Publish(c.NewMessage(bus.T("config", "blinker"), "hello", false))
	return recvString(sub, "hello", 100*time.Millisecond)
}

func checkRetained() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("selftest")
	c.Publish(c.NewMessage(bus.T("blinker", "state"), "persist", true))
	sub := c.Subscribe(bus.T("blinker", "state"))
	return recvString(sub, "persist", 100*time.Millisecond)
}

func checkRetainedClear() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("selftest")
	c.Publish(c.NewMessage(bus.T("blinker", "state"), "stale", true))
	c.Publish(c.NewMessage(bus.T("blinker", "state"), nil, true))
	sub := c.Subscribe(bus.T("blinker", "state"))
	return silent(sub, 60*time.Millisecond)
}

func checkWildcardOne() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("selftest")
	sub := c.Subscribe(bus.T("blinker", "+", "event"))
	c.Publish(c.NewMessage(bus.T("blinker", "button", "event"), "edge", false))
	if !recvString(sub, "edge", 100*time.Millisecond) {
		return false
	}
	c.Publish(c.NewMessage(bus.T("blinker", "button", "state"), "nope", false))
	return silent(sub, 60*time.Millisecond)
}

func checkWildcardRest() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("selftest")
	sub := c.Subscribe(bus.T("blinker", "#"))
	c.Publish(c.NewMessage(bus.T("blinker", "button", "event"), "deep", false))
	return recvString(sub, "deep", 100*time.Millisecond)
}

func checkRequestReply() bool {
	b := bus.NewBus(4)
	req := b.NewConnection("requester")
	rsp := b.NewConnection("responder")

	sub := rsp.Subscribe(bus.T("blinker", "control", "status"))
	go func() {
		if msg, ok := <-sub.Channel(); ok {
			rsp.Reply(msg, "alive", false)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	rep, err := req.RequestWait(ctx, req.NewMessage(bus.T("blinker", "control", "status"), nil, false))
	if err != nil {
		return false
	}
	s, ok := rep.Payload.(string)
	return ok && s == "alive"
}

func checkRequestTimeout() bool {
	b := bus.NewBus(4)
	req := b.NewConnection("requester")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := req.RequestWait(ctx, req.NewMessage(bus.T("nobody", "home"), nil, false))
	return err != nil
}
