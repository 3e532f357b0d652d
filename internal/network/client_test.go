package network

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/openwilds/forage-colony/internal/events"
)

func TestReplyAfterSendClosed(t *testing.T) {
	c := &Client{send: make(chan []byte, 1)}
	c.closeSend()
	c.closeSend() // second close is a no-op

	// A reply racing the hub's close must be dropped, not panic.
	c.reply("error", map[string]string{"error": "rate limited"})

	if c.trySend([]byte("x")) {
		t.Errorf("trySend succeeded on a closed queue")
	}
}

func TestReplyRacesClose(t *testing.T) {
	c := &Client{send: make(chan []byte, 1)}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			c.reply("state", map[string]int{"i": i})
		}
	}()
	go func() {
		defer wg.Done()
		c.closeSend()
	}()
	wg.Wait()
}

func TestChatTruncatesOnRuneBoundary(t *testing.T) {
	log := events.NewLog(8, nil)
	c := &Client{send: make(chan []byte, 1), eventLog: log}

	text := strings.Repeat("ñ", maxChatRunes+20)
	payload, _ := json.Marshal(map[string]string{"text": text})
	c.handleChat(Command{Type: "CHAT", ForagerID: "forager-1", Payload: payload})

	entries := log.Recent(1)
	if len(entries) != 1 {
		t.Fatalf("Expected a chat ledger entry")
	}
	got := entries[0].Payload.(map[string]string)["text"]
	if !utf8.ValidString(got) {
		t.Errorf("Chat text is not valid UTF-8 after truncation")
	}
	if n := utf8.RuneCountInString(got); n != maxChatRunes {
		t.Errorf("Expected %d runes, got %d", maxChatRunes, n)
	}
}
