package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"courier/domain"
)

// api is a thin HTTP wrapper around the server. It implements the session's
// TranscriptFetcher and MessageSender interfaces.
type api struct {
	base   string
	token  string
	client *http.Client
}

func newAPI(base string) *api {
	return &api{base: base, client: &http.Client{}}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (a *api) Login(email, password string) (domain.User, error) {
	var s session
	if err := a.post("/api/auth/login", credentials{Email: email, Password: password}, &s); err != nil {
		return domain.User{}, err
	}
	a.token = s.Token
	return s.User, nil
}

func (a *api) Logout() error {
	return a.post("/api/auth/logout", nil, nil)
}

func (a *api) Peers(search string) ([]domain.User, error) {
	var users []domain.User
	path := "/api/users"
	if search != "" {
		path += "?search=" + search
	}
	if err := a.get(path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *api) Transcript(ctx context.Context, peerID string) ([]domain.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/messages/"+peerID, nil)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := a.do(req, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

type outgoing struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

func (a *api) Post(ctx context.Context, recipientID, content string) (domain.Message, error) {
	body, err := json.Marshal(outgoing{RecipientID: recipientID, Content: content})
	if err != nil {
		return domain.Message{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return domain.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	var message domain.Message
	if err := a.do(req, &message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Events opens the live stream. The caller owns the response body.
func (a *api) Events(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+a.token)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream refused: %s", resp.Status)
	}
	return resp, nil
}

func (a *api) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, a.base+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *api) post(path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(http.MethodPost, a.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *api) do(req *http.Request, out any) error {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var remote struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil && remote.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, remote.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
