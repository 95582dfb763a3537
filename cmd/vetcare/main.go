// Command vetcare is a thin terminal front end over the client core. It is
// pass-through plumbing only: it wires config, logging, tracing, the
// credential cache, and the API client into the services, then maps one
// subcommand onto one service operation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/agrovet/go-vetcare-client/internal/api"
	"github.com/agrovet/go-vetcare-client/internal/config"
	"github.com/agrovet/go-vetcare-client/internal/domain"
	"github.com/agrovet/go-vetcare-client/internal/observability"
	"github.com/agrovet/go-vetcare-client/internal/services"
	"github.com/agrovet/go-vetcare-client/internal/store"
	"github.com/agrovet/go-vetcare-client/internal/sysutil"
)

const version = "0.1.0"

const usage = `usage: vetcare <command> [args]

commands:
  login <token>                     cache a bearer credential
  logout                            clear the cached credential
  balance                           show the current token balance
  conversations                     list conversations
  open <participantId> <type>       print the message history with a participant
  send <participantId> <type> <msg> send a chat message
  appointments                      list appointments for the configured role
  predict <json-payload>            run the paid disease prediction
`

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()

	shutdown, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() { _ = shutdown(ctx) }()

	creds, err := store.Open(cfg.CachePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CachePath).Msg("open credential cache")
	}
	defer creds.Close()

	client := api.New(cfg.APIBaseURL, creds, api.Options{
		Timeout: cfg.HTTPTimeout,
		RPS:     cfg.RateRPS,
		Burst:   cfg.RateBurst,
	})

	tokens := services.NewTokenService(client, cfg.UserID)
	tokens.Costs = cfg.FeatureCosts
	chats := services.NewConversationService(client, cfg.Role)
	appointments := services.NewAppointmentService(client, cfg.Role)
	gate := services.NewPredictionService(tokens, client)

	if err := run(ctx, os.Args[1], os.Args[2:], creds, tokens, chats, appointments, gate); err != nil {
		log.Error().Err(err).Msg(os.Args[1])
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cmd string,
	args []string,
	creds *store.CredentialStore,
	tokens *services.TokenService,
	chats *services.ConversationService,
	appointments *services.AppointmentService,
	gate *services.PredictionService,
) error {
	switch cmd {
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("login expects exactly one token argument")
		}
		return creds.SaveToken(ctx, args[0])

	case "logout":
		return creds.Clear(ctx)

	case "balance":
		bal, err := tokens.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("token balance: %d\n", bal)
		return nil

	case "conversations":
		list, err := chats.Conversations(ctx)
		if err != nil {
			return err
		}
		for _, c := range list {
			fmt.Printf("%-24s  %-8s  unread=%d  %s\n",
				c.Participant.Name, c.Participant.Type, c.UnreadCount, c.LastMessage.Content)
		}
		return nil

	case "open":
		if len(args) != 2 {
			return fmt.Errorf("open expects <participantId> <type>")
		}
		sess, err := openSession(ctx, chats, args[0], args[1])
		if err != nil {
			return err
		}
		defer sess.Close()
		for _, m := range sess.Messages() {
			fmt.Printf("[%s] %-6s  %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.SenderType, m.Content)
		}
		return nil

	case "send":
		if len(args) < 3 {
			return fmt.Errorf("send expects <participantId> <type> <message>")
		}
		sess, err := openSession(ctx, chats, args[0], args[1])
		if err != nil {
			return err
		}
		defer sess.Close()
		return sess.Send(ctx, strings.Join(args[2:], " "))

	case "appointments":
		list, err := appointments.List(ctx)
		if err != nil {
			return err
		}
		for _, a := range list {
			fmt.Printf("%-12s  %s %s  farmer=%s vet=%s  %s\n",
				a.Status, a.Date, a.Time, a.Farmer.Name, a.Vet.Name, a.Reason)
		}
		return nil

	case "predict":
		if len(args) != 1 {
			return fmt.Errorf("predict expects one JSON payload argument")
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		inv, err := gate.Invoke(ctx, domain.ProMode, payload)
		if err != nil {
			return fmt.Errorf("%s (state %s): %w", inv.Message, inv.State, err)
		}
		fmt.Printf("prediction: %s (confidence %.2f)\nadvice: %s\nremaining balance: %d\n",
			inv.Result.Label, inv.Result.Confidence, inv.Result.Advice, inv.NewBalance)
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openSession(ctx context.Context, chats *services.ConversationService, id, typ string) (*services.ChatSession, error) {
	role := domain.Role(strings.ToLower(typ))
	if !role.Valid() {
		return nil, fmt.Errorf("participant type must be farmer or vet, got %q", typ)
	}
	conv := chats.StartConversation(domain.Participant{ID: id, Type: role})
	return chats.Open(ctx, conv)
}
