// Package service wires the locker components together for the server and the CLI.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/config"
	"smart-locker-control/internal/email"
	"smart-locker-control/internal/jwt"
	"smart-locker-control/internal/locker"
	"smart-locker-control/internal/metrics"
	"smart-locker-control/internal/nonce"
	"smart-locker-control/internal/notify"
	"smart-locker-control/internal/storage"
)

// Services is the wired set of components shared by the server and the CLI.
type Services struct {
	Config   *config.Config
	Users    *access.Directory
	Nonces   nonce.Store
	Signer   *jwt.Signer
	Locker   *locker.Controller
	Activity *activity.Log
	QRLog    *activity.Log
	Notifier *notify.Notifier

	Registry *prometheus.Registry
	Metrics  *metrics.Collector
}

// NewServices builds every component on top of provider. The users file is only
// loaded when withUsers is set.
func NewServices(ctx context.Context, cfg *config.Config, provider storage.Provider, withUsers bool) (*Services, error) {
	s := &Services{Config: cfg}

	if withUsers {
		users, err := access.LoadDirectory(cfg.UsersFile)
		if err != nil {
			return nil, err
		}
		s.Users = users
	}

	nonces, err := nonce.NewStore(cfg.NonceStore, provider, time.Duration(2*cfg.TokenExpirySkew)*time.Second)
	if err != nil {
		return nil, err
	}
	s.Nonces = nonces

	secret := cfg.Secret
	if secret == "" {
		if secret, err = ephemeralSecret(); err != nil {
			s.Close()
			return nil, err
		}
		slog.Warn("Using an ephemeral secret, tokens will not survive a restart")
	}
	s.Signer = jwt.NewSigner(
		secret,
		time.Duration(cfg.TokenTTL)*time.Second,
		time.Duration(cfg.QR.CodeTTL)*time.Second,
		time.Duration(cfg.TokenExpirySkew)*time.Second,
		nonces,
	)

	s.Locker, err = locker.NewController(ctx, cfg.Locker.ID, provider, cfg.Locker.SettleDelay)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Activity = activity.NewLog(storage.LogActivity, provider, cfg.Activity.Cap, cfg.Activity.ReadLimit, activity.TypeUserAction)
	s.QRLog = activity.NewLog(storage.LogQR, provider, cfg.Activity.Cap, cfg.Activity.ReadLimit, activity.TypeInfo)

	s.Registry = prometheus.NewRegistry()
	s.Metrics = metrics.NewCollector(s.Registry)
	s.Locker.Observe(s.Metrics.RecordLockerState)
	s.Metrics.RecordLockerState(s.Locker.Status())
	s.Activity.OnAppend(s.Metrics.RecordActivity)
	s.QRLog.OnAppend(s.Metrics.RecordActivity)

	if cfg.Email.Enabled() && len(cfg.Notify.Recipients) > 0 {
		client, err := email.NewClient(cfg.Email)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Notifier = notify.New(client, cfg.Locker.ID, cfg.Notify.Recipients, cfg.Notify.Types)
		s.Activity.OnAppend(s.Notifier.Listen)
		s.QRLog.OnAppend(s.Notifier.Listen)
		slog.Info("E-mail notifications enabled", "recipients", len(cfg.Notify.Recipients), "types", cfg.Notify.Types)
	}

	return s, nil
}

// Close stops background work. Pending locker settles are cancelled.
func (s *Services) Close() {
	if s.Locker != nil {
		s.Locker.Close()
	}
	if s.Notifier != nil {
		s.Notifier.Close()
	}
	if s.Nonces != nil {
		s.Nonces.Close()
	}
}

// Command runs action on the locker and records it in the activity log. By default the
// entry is "Locker open"/"Locker close" of type status_change; e overrides action, type
// and adds metadata.
func (s *Services) Command(ctx context.Context, action locker.Action, e activity.Entry) (locker.State, activity.Entry, error) {
	state, err := s.Locker.Command(ctx, action)
	if err != nil {
		return locker.State{}, activity.Entry{}, err
	}
	if s.Metrics != nil {
		s.Metrics.RecordCommand(action)
	}

	if e.Action == "" {
		e.Action = activity.ActionLockerOpen
		if action == locker.ActionClose {
			e.Action = activity.ActionLockerClose
		}
	}
	if e.Type == "" {
		e.Type = activity.TypeStatusChange
	}
	meta := map[string]any{"status": string(state.Status), "locker_id": s.Locker.ID()}
	maps.Copy(meta, e.Metadata)
	e.Metadata = meta

	entry, err := s.Activity.Append(ctx, e)
	if err != nil {
		return state, activity.Entry{}, fmt.Errorf("command applied but not logged: %w", err)
	}
	return state, entry, nil
}

func ephemeralSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(errors.New("failed to generate secret"), err)
	}
	return hex.EncodeToString(b), nil
}
