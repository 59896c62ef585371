// Interactive tester for the relay: logs in over HTTP, opens the
// WebSocket, joins a room and bridges stdin to sendMessage events.
// Incoming traffic is printed colorized, one line per event.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"chat-relay/transport/ws"

	"github.com/gookit/color"
)

type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:5000"`
	Email     string `envconfig:"EMAIL" required:"true"`
	Password  string `envconfig:"PASSWORD" required:"true"`
	Room      string `envconfig:"ROOM" default:"general"`
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func main() {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("tester", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	sess, err := login(cfg)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	color.Green.Printf("Logged in as %s\n", sess.User.Username)

	wsURL := strings.Replace(cfg.ServerURL, "http", "ws", 1) + "/ws?token=" + sess.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ws.ClientEvent{Type: ws.EventJoinRoom, RoomID: cfg.Room}); err != nil {
		log.Fatalf("Join failed: %v", err)
	}
	color.Green.Printf("Joined room %q\n", cfg.Room)

	go receive(conn)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/typing":
			_ = conn.WriteJSON(ws.ClientEvent{Type: ws.EventTyping, RoomID: cfg.Room})
		case line == "/stop":
			_ = conn.WriteJSON(ws.ClientEvent{Type: ws.EventStopTyping, RoomID: cfg.Room})
		case line != "":
			_ = conn.WriteJSON(ws.ClientEvent{Type: ws.EventSendMessage, RoomID: cfg.Room, Content: line})
		}
	}
}

func login(cfg Config) (session, error) {
	body, _ := json.Marshal(map[string]string{"email": cfg.Email, "password": cfg.Password})
	resp, err := http.Post(cfg.ServerURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return session{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return session{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	var sess session
	return sess, json.NewDecoder(resp.Body).Decode(&sess)
}

func receive(conn *websocket.Conn) {
	for {
		var evt ws.ServerEvent
		if err := conn.ReadJSON(&evt); err != nil {
			color.Red.Printf("Connection closed: %v\n", err)
			os.Exit(0)
		}
		render(evt)
	}
}

func render(evt ws.ServerEvent) {
	payload, _ := json.Marshal(evt.Payload)
	switch evt.Type {
	case ws.EventReceiveMessage:
		color.Cyan.Printf("[%s] %s\n", evt.RoomID, payload)
	case ws.EventPreviousMessages:
		color.Gray.Printf("[%s] history: %s\n", evt.RoomID, payload)
	case ws.EventOnlineUsers:
		color.Yellow.Printf("[%s] online: %s\n", evt.RoomID, payload)
	case ws.EventUserTyping:
		color.Magenta.Printf("[%s] typing: %s\n", evt.RoomID, payload)
	case ws.EventUserStoppedTyping:
		color.Magenta.Printf("[%s] stopped typing: %s\n", evt.RoomID, payload)
	case ws.EventError:
		color.Red.Printf("[%s] error: %s\n", evt.RoomID, payload)
	default:
		fmt.Printf("[%s] %s: %s\n", evt.RoomID, evt.Type, payload)
	}
}
