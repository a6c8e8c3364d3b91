// Command loadtest drives a running campus-chat server with paired websocket
// clients: each pair registers presence, joins a shared group and exchanges
// direct traffic. It mints its own tokens, so it needs the server's JWT
// secret.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var (
	wsURL     = flag.String("ws", "ws://localhost:8080/ws", "websocket endpoint")
	secret    = flag.String("secret", "", "server JWT secret (required)")
	pairCount = flag.Int("pairs", 50, "number of user pairs")
	msgCount  = flag.Int("msgs", 20, "direct messages per user")
)

var received atomic.Int64

func main() {
	flag.Parse()
	if *secret == "" {
		log.Fatal("-secret is required")
	}

	log.Printf("starting load test: %d users, %d messages each", *pairCount*2, *msgCount)
	var wg sync.WaitGroup
	for i := 0; i < *pairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}
	wg.Wait()
	log.Printf("load test complete, %d direct messages delivered", received.Load())
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	groupID := fmt.Sprintf("g_%d", pairID)

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go runClient(&wsWg, userA, userB, groupID)
	go runClient(&wsWg, userB, userA, groupID)
	wsWg.Wait()
}

func runClient(wg *sync.WaitGroup, user, peer, groupID string) {
	defer wg.Done()

	token, err := mintToken(user)
	if err != nil {
		log.Printf("mint token [%s]: %v", user, err)
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", *wsURL, token), nil)
	if err != nil {
		log.Printf("ws connect [%s]: %v", user, err)
		return
	}
	defer conn.Close()

	// Count deliveries in the background; the connection close ends the loop.
	go func() {
		for {
			var frame struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Event == "getMessage" {
				received.Add(1)
			}
		}
	}()

	type frame struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}
	send := func(event string, data any) error {
		return conn.WriteJSON(frame{Event: event, Data: data})
	}

	if err := send("addUser", user); err != nil {
		log.Printf("addUser [%s]: %v", user, err)
		return
	}
	if err := send("joinGroup", map[string]string{"userId": user, "groupId": groupID}); err != nil {
		log.Printf("joinGroup [%s]: %v", user, err)
		return
	}

	for i := 0; i < *msgCount; i++ {
		msg := map[string]string{
			"senderId":   user,
			"receiverId": peer,
			"text":       fmt.Sprintf("loadtest msg %d from %s", i, user),
		}
		if err := send("sendMessage", msg); err != nil {
			log.Printf("sendMessage [%s]: %v", user, err)
			return
		}
		// Simulate real pacing instead of hammering localhost.
		time.Sleep(10 * time.Millisecond)
	}

	if err := send("sendGroupMessage", map[string]string{
		"senderId": user,
		"groupId":  groupID,
		"text":     "done " + user,
	}); err != nil {
		log.Printf("sendGroupMessage [%s]: %v", user, err)
	}

	// Let in-flight deliveries drain before tearing down.
	time.Sleep(500 * time.Millisecond)
}

func mintToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"uid":  userID,
		"name": "Load Tester " + userID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(*secret))
}
