package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/prefect-api/pkg/client"
	"github.com/noah-isme/prefect-api/pkg/realtime"
)

var watchOpts struct {
	baseURL  string
	email    string
	password string
	limit    int
}

var watchCmd = &cobra.Command{
	Use:   "watch <conversation-id>",
	Short: "Sign in and tail a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchOpts.baseURL, "url", "http://localhost:8080/api/v1", "API base URL")
	watchCmd.Flags().StringVarP(&watchOpts.email, "email", "e", "", "account email")
	watchCmd.Flags().StringVarP(&watchOpts.password, "password", "p", "", "account password (defaults to $PREFECT_PASSWORD)")
	watchCmd.Flags().IntVarP(&watchOpts.limit, "limit", "n", 20, "messages to show on open")
	_ = watchCmd.MarkFlagRequired("email")
}

func runWatch(cmd *cobra.Command, args []string) error {
	password := watchOpts.password
	if password == "" {
		password = os.Getenv("PREFECT_PASSWORD")
	}
	if password == "" {
		return errors.New("password is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(watchOpts.baseURL)
	if _, err := api.SignIn(ctx, watchOpts.email, password); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	out := cmd.OutOrStdout()
	printed := make(map[string]time.Time)
	changes := make(chan struct{}, 1)
	messages := realtime.NewMessageFeed(client.NewConversations(api), client.NewStreamSubscriber(api), realtime.FeedOptions{
		Limit: watchOpts.limit,
		OnChange: func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		},
		OnError: func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "reconnecting: %v\n", err)
		},
	})
	if err := messages.Open(ctx, args[0]); err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}
	defer messages.Close()

	render := func() {
		for _, m := range messages.Messages() {
			if seen, ok := printed[m.ID]; ok && !m.UpdatedAt.After(seen) {
				continue
			}
			printed[m.ID] = m.UpdatedAt
			sender := m.SenderID
			if m.SenderName != nil {
				sender = *m.SenderName
			}
			edited := ""
			if m.IsEdited {
				edited = " (edited)"
			}
			fmt.Fprintf(out, "[%s] %s: %s%s\n", m.CreatedAt.Local().Format("15:04:05"), sender, m.Body, edited)
		}
	}
	render()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-changes:
			render()
		}
	}
}
