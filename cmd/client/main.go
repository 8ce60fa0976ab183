// Command client joins a room from the terminal: it negotiates a peer link
// with every other member and relays chat lines typed on stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/client"
	"github.com/mindlink/peerhub/internal/domain"
	"github.com/mindlink/peerhub/internal/protocol"
)

type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func main() {
	var (
		server = flag.String("server", "ws://localhost:8080", "server base URL (ws:// or wss://)")
		token  = flag.String("token", "", "bearer token")
		roomID = flag.String("room", "", "room id to join")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *token == "" || *roomID == "" {
		fmt.Fprintln(os.Stderr, "usage: client -token <jwt> -room <id> [-server ws://host:port]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	u, err := url.Parse(*server + "/api/ws/signal")
	if err != nil {
		log.Fatal().Err(err).Msg("bad server URL")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+*token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		log.Fatal().Err(err).Str("url", u.String()).Msg("dial failed")
	}
	defer conn.Close()

	sender := &wsSender{conn: conn}
	session := client.NewRoomSession(domain.RoomID(*roomID), sender, func() (client.MediaTransport, error) {
		return client.NewWebRTCTransport(client.DefaultWebRTCConfig())
	})
	session.OnMessage = func(m protocol.NewMessage) {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Sender.Name, m.Message)
	}
	session.OnError = func(msg string) {
		fmt.Fprintf(os.Stderr, "server: %s\n", msg)
	}
	session.OnPeerGone = func(id domain.UserID) {
		fmt.Printf("* peer %s left\n", id)
	}

	if err := session.Join(); err != nil {
		log.Fatal().Err(err).Msg("join failed")
	}

	// Inbound events drive the session until the socket dies.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Warn().Err(err).Msg("connection closed")
				return
			}
			session.Handle(data)
		}
	}()

	// Stdin lines become chat messages.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := session.SendChat(line); err != nil {
				log.Warn().Err(err).Msg("send chat")
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-readDone:
	}
	_ = session.Leave()
}
