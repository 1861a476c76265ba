package gateway

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// TokenValidator is the consumer-side interface for JWT validation.
// Defined where consumed rather than in the auth package.
type TokenValidator interface {
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// TokenClaims holds the subset of JWT claims the bridge needs.
type TokenClaims struct {
	UserID   string
	Username string
}

// sessionOpen is the first WebSocket message from the client. The
// vault access token stands in for credentials so plaintext passwords
// never transit the browser.
type sessionOpen struct {
	AccessToken string `json:"access_token"`
	Port        int    `json:"port,omitempty"`
}

// SSHBridge upgrades WebSocket requests to interactive SSH sessions.
type SSHBridge struct {
	module *Module
	logger *zap.Logger

	// sshDial defaults to ssh.Dial; overridden in tests.
	sshDial func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}

// HandleTerminal bridges a WebSocket connection to an SSH shell on the
// target device. The JWT arrives as a query parameter because browser
// WebSocket clients cannot set headers; the vault token arrives in the
// first message so it never lands in access logs.
func (b *SSHBridge) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}
	claims, err := b.module.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	deviceID, err := strconv.Atoi(r.PathValue("device_id"))
	if err != nil || deviceID == 0 {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}

	device, err := b.module.inventory.DeviceByID(r.Context(), deviceID)
	if err != nil {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	host := device.ManagementAddr()
	if host == "" {
		http.Error(w, "device has no management address", http.StatusBadRequest)
		return
	}

	if b.module.sessions.Count() >= b.module.cfg.MaxSessions {
		http.Error(w, "session limit reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		b.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	ctx := r.Context()

	_, msg, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "failed to read session open message")
		return
	}
	var open sessionOpen
	if err := json.Unmarshal(msg, &open); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "invalid session open JSON")
		return
	}
	if open.AccessToken == "" {
		conn.Close(websocket.StatusPolicyViolation, "access_token is required")
		return
	}
	port := open.Port
	if port <= 0 || port > 65535 {
		port = 22
	}

	// Resolve the vault token; ownership and platform scope are
	// enforced there, the gateway never sees why a token was refused.
	creds, err := b.module.credentials.ResolveForDevice(ctx, open.AccessToken, claims.UserID, device)
	if err != nil {
		b.logger.Debug("credential resolution failed",
			zap.Int("device_id", deviceID), zap.Error(err))
		conn.Close(websocket.StatusPolicyViolation, "credential resolution failed")
		return
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	sshConfig := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // G106: host key verification is a future enhancement
		Timeout:         b.module.cfg.ConnectTimeout,
	}

	dial := b.sshDial
	if dial == nil {
		dial = ssh.Dial
	}
	client, err := dial("tcp", addr, sshConfig)
	if err != nil {
		b.logger.Debug("ssh dial failed", zap.String("addr", addr), zap.Error(err))
		conn.Close(websocket.StatusInternalError, "SSH connection failed: "+err.Error())
		return
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		conn.Close(websocket.StatusInternalError, "SSH session creation failed")
		return
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 24, 80, modes); err != nil {
		session.Close()
		client.Close()
		conn.Close(websocket.StatusInternalError, "PTY request failed")
		return
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		conn.Close(websocket.StatusInternalError, "stdin pipe failed")
		return
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		conn.Close(websocket.StatusInternalError, "stdout pipe failed")
		return
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		conn.Close(websocket.StatusInternalError, "shell start failed")
		return
	}

	// The shell is up, which means the credentials worked.
	if err := b.module.credentials.MarkUsed(ctx, creds.CredentialSetID); err != nil {
		b.logger.Warn("failed to record credential use", zap.Error(err))
	}

	gwSession := &Session{
		ID:         generateSessionID(),
		DeviceID:   device.ID,
		DeviceName: device.Name,
		UserID:     claims.UserID,
		Target:     addr,
		SourceIP:   r.RemoteAddr,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(b.module.cfg.SessionTimeout),
	}
	if err := b.module.sessions.Create(gwSession); err != nil {
		session.Close()
		client.Close()
		conn.Close(websocket.StatusInternalError, "session limit reached")
		return
	}

	b.module.publish(ctx, EventSessionOpened, map[string]any{
		"session_id": gwSession.ID,
		"device_id":  device.ID,
		"user_id":    claims.UserID,
		"target":     addr,
	})
	b.logger.Info("terminal session opened",
		zap.String("session_id", gwSession.ID),
		zap.String("device", device.Name),
		zap.String("user", claims.Username))

	done := make(chan struct{}, 2)

	// WS -> SSH stdin
	go func() {
		defer func() { done <- struct{}{} }()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			gwSession.BytesIn.Add(int64(len(data)))
			if _, err := stdin.Write(data); err != nil {
				return
			}
		}
	}()

	// SSH stdout -> WS
	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 4096)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				gwSession.BytesOut.Add(int64(n))
				if wErr := conn.Write(ctx, websocket.MessageBinary, buf[:n]); wErr != nil {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					b.logger.Debug("ssh stdout read error", zap.Error(err))
				}
				return
			}
		}
	}()

	<-done

	session.Close()
	client.Close()
	conn.Close(websocket.StatusNormalClosure, "session ended")

	b.module.sessions.Delete(gwSession.ID)
	b.module.publish(ctx, EventSessionClosed, map[string]any{
		"session_id": gwSession.ID,
		"device_id":  device.ID,
		"bytes_in":   gwSession.BytesIn.Load(),
		"bytes_out":  gwSession.BytesOut.Load(),
	})
	b.logger.Info("terminal session closed",
		zap.String("session_id", gwSession.ID),
		zap.Int64("bytes_in", gwSession.BytesIn.Load()),
		zap.Int64("bytes_out", gwSession.BytesOut.Load()))
}
