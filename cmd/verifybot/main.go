// Команда verifybot: точка входа агента верификации.
//
// @title                       Place&Play verification agent API
// @version                     2.3.0
// @description                 Доставка кодов верификации номера телефона через Telegram бота.
// @BasePath                    /
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"phoneverify/internal/app"
	"phoneverify/internal/config"
	"phoneverify/internal/middleware"
	"phoneverify/internal/session"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "verifybot",
		Short:         "Telegram phone verification agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().String("config", config.DefaultPath, "path to config.yaml")
	root.AddCommand(serveCmd(), linkCmd(), hashKeyCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram bot",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx, cfg)
}

func linkCmd() *cobra.Command {
	var phoneNumber, access, refresh, bot string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print a verification deep link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Session.Secret == "" {
				return errors.New("JWT_SECRET is required: a link signed with a random secret cannot be verified by the server")
			}
			if bot == "" {
				bot = cfg.Telegram.BotUsername
			}
			codec, err := session.NewCodec([]byte(cfg.Session.Secret))
			if err != nil {
				return err
			}
			link, err := session.NewLinkGenerator(codec).Generate(phoneNumber, access, refresh, bot)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, link.URL)
			fmt.Fprintf(out, "phone: %s\nexpires: %s\n", link.Phone, link.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&phoneNumber, "phone", "", "phone number, e.g. +998998888931")
	cmd.Flags().StringVar(&access, "access-token", "", "user access token")
	cmd.Flags().StringVar(&refresh, "refresh-token", "", "user refresh token")
	cmd.Flags().StringVar(&bot, "bot", "", "bot username (default: telegram.bot_username)")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("access-token")
	_ = cmd.MarkFlagRequired("refresh-token")
	return cmd
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print a bcrypt hash for api.key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New("key must not be empty")
			}
			h, err := middleware.HashAPIKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
