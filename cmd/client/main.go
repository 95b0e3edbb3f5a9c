package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"courier/client"
	"courier/domain"
	"courier/domain/event"
)

// Interactive terminal client. Commands:
//
//	/peers [search]   list users (presence + matching)
//	/open <email>     open the conversation with that user
//	/quit             logout and exit
//
// Any other input is sent to the currently open peer.
func main() {
	_ = godotenv.Load()
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.Email == "" || cfg.Password == "" {
		log.Fatal("CLIENT_EMAIL and CLIENT_PASSWORD are required")
	}
	color.Enable = cfg.Colours
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	remote := newAPI(cfg.ServerAddr)
	me, err := remote.Login(cfg.Email, cfg.Password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	color.Green.Printf("Connected as %s <%s>\n", me.Name, me.Email)

	sess := client.NewSession(logger, me.ID, remote, remote, cfg.FetchTimeout)
	sess.Observe(func(snap client.Snapshot) {
		render(me.ID, snap)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumeEvents(ctx, remote, sess)

	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			break
		}
		line := strings.TrimSpace(stdin.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			if err := remote.Logout(); err != nil {
				color.Red.Printf("Logout failed: %v\n", err)
			}
			return
		case strings.HasPrefix(line, "/peers"):
			search := strings.TrimSpace(strings.TrimPrefix(line, "/peers"))
			listPeers(remote, search)
		case strings.HasPrefix(line, "/open "):
			openPeer(ctx, remote, sess, strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
		default:
			if err := sess.SendMessage(ctx, line); err != nil {
				color.Red.Printf("Send failed: %v (draft kept)\n", err)
			}
		}
	}
}

// consumeEvents reads the server-sent event stream and feeds each message to
// the session, which filters for the open conversation.
func consumeEvents(ctx context.Context, remote *api, sess *client.Session) {
	resp, err := remote.Events(ctx)
	if err != nil {
		color.Red.Printf("Event stream unavailable: %v\n", err)
		return
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var message domain.Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &message); err != nil {
			continue
		}
		_ = sess.Consume(ctx, event.MessageStored{
			ID:          message.ID,
			SenderID:    message.SenderID,
			RecipientID: message.RecipientID,
			Content:     message.Content,
			Lang:        message.Lang,
			At:          message.CreatedAt,
		})
	}
}

func listPeers(remote *api, search string) {
	users, err := remote.Peers(search)
	if err != nil {
		color.Red.Printf("Failed to list users: %v\n", err)
		return
	}
	for _, u := range users {
		presence := color.Gray.Render("offline")
		if u.IsActive {
			presence = color.Green.Render("online")
		}
		fmt.Printf("  %s <%s> [%s]\n", u.Name, u.Email, presence)
	}
}

func openPeer(ctx context.Context, remote *api, sess *client.Session, target string) {
	users, err := remote.Peers(target)
	if err != nil {
		color.Red.Printf("Failed to resolve %q: %v\n", target, err)
		return
	}
	if len(users) == 0 {
		color.Yellow.Printf("No user matches %q\n", target)
		return
	}
	sess.SelectPeer(ctx, users[0])
}

func render(selfID string, snap client.Snapshot) {
	switch snap.State {
	case client.StateLoading:
		color.Cyan.Printf("Opening conversation with %s...\n", snap.Peer.Name)
	case client.StateIdle:
		if snap.Err != nil {
			color.Red.Printf("Could not load conversation: %v\n", snap.Err)
		}
	case client.StateActive:
		// Full redraw on every transition keeps the rendering dumb and correct.
		fmt.Println(strings.Repeat("-", 40))
		for _, m := range snap.Transcript {
			name := snap.Peer.Name
			if m.SenderID == selfID {
				name = color.Green.Render("me")
			}
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), name, m.Content)
		}
	}
}
