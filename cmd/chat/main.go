package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"geminichat-backend/internal/config"
	"geminichat-backend/internal/services"
	"geminichat-backend/internal/transcript"
)

var (
	modelName  string
	noMarkdown bool
	welcome    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Gemini from the terminal",
	Long: `Start an interactive chat session with Gemini.

The API key is read from the secrets file (SECRETS_FILE, default
.streamlit/secrets.toml) and then from the GEMINI_API_KEY environment variable.

Commands:
  /history   print the history that will be sent with the next message
  /quit      end the session`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen})
		if lvl, err := zerolog.ParseLevel(logLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	},
	RunE: runChat,
}

func init() {
	rootCmd.Flags().StringVar(&modelName, "model", "", "Gemini model (defaults to GEMINI_MODEL)")
	rootCmd.Flags().BoolVar(&noMarkdown, "no-markdown", false, "Print replies as plain text")
	rootCmd.Flags().StringVar(&welcome, "welcome", "", "Welcome message (defaults to WELCOME_MESSAGE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Usable() {
		return &config.ConfigurationError{Key: "GEMINI_API_KEY", Reason: "not found in secrets file or environment"}
	}

	if modelName == "" {
		modelName = cfg.GeminiModel
	}
	if welcome == "" {
		welcome = cfg.WelcomeMessage
	}

	gemini, err := services.NewGeminiService(cmd.Context(), services.GeminiOptions{
		APIKey:         cfg.GeminiAPIKey,
		Model:          modelName,
		Temperature:    cfg.GeminiTemperature,
		ConcurrentReqs: 1,
	})
	if err != nil {
		return err
	}
	defer gemini.Close()

	r, err := newRenderer(!noMarkdown)
	if err != nil {
		return err
	}

	c := &chat{
		manager:   transcript.NewManager(welcome),
		completer: gemini,
		render:    r,
		out:       cmd.OutOrStdout(),
	}
	return c.run(cmd.Context(), cmd.InOrStdin())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, noticeStyle.Render(err.Error()))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
