package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/raine/telegram-recycling-bot/internal/config"
)

const validateTimeout = 10 * time.Second

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runSetupWizard runs an interactive wizard to collect required configuration.
// Returns true if setup was successful and the bot should continue starting.
func runSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("♻️  Telegram Recycling Bot - First-time Setup"))
	fmt.Println()

	provider := os.Getenv(config.EnvGuidanceProvider)
	if provider == "" {
		provider = "gemini"
	}
	var botToken, geminiKey, openAIKey, adminID string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Message @BotFather on Telegram → /newbot → copy token").
				Value(&botToken).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return validateTelegramToken(s)
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Guidance provider").
				Description("Which model answers recycling questions").
				Options(
					huh.NewOption("Google Gemini", "gemini"),
					huh.NewOption("OpenAI-compatible API", "openai"),
				).
				Value(&provider),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Get yours at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return validateGeminiKey(s)
				}),
		).WithHideFunc(func() bool { return provider != "gemini" }),
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API Key").
				Description("Key for the OpenAI-compatible endpoint").
				Value(&openAIKey).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return provider != "openai" }),
		huh.NewGroup(
			huh.NewInput().
				Title("Your Telegram User ID").
				Description("Message @userinfobot to get your ID: https://t.me/userinfobot").
				Value(&adminID).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("user ID is required")
					}
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return errors.New("must be a number")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeBase16())

	err := form.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		config.EnvBotToken:         botToken,
		config.EnvGuidanceProvider: provider,
		config.EnvAdminTelegramID:  adminID,
	}
	switch provider {
	case "openai":
		values[config.EnvOpenAIAPIKey] = openAIKey
	default:
		values[config.EnvGeminiAPIKey] = geminiKey
	}
	// Keep an existing key so saved locations stay readable
	if os.Getenv(config.EnvSettingsKey) == "" {
		values[config.EnvSettingsKey] = generateSettingsKey()
	}

	configPath, err := config.FilePath()
	if err == nil {
		err = config.WriteEnvFile(configPath, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		waitOnWindows()
		return false
	}

	// Set values in current process
	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()
	fmt.Println("Starting bot...")
	fmt.Println()

	return true
}

func generateSettingsKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based if crypto/rand fails (unlikely)
		return fmt.Sprintf("recycle-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validateTelegramToken validates a Telegram bot token by calling the getMe API.
func validateTelegramToken(token string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}

	client := resty.New().SetTimeout(validateTimeout)
	resp, err := client.R().
		SetPathParam("token", token).
		SetResult(&result).
		SetError(&result).
		Get("https://api.telegram.org/bot{token}/getMe")
	if err != nil {
		if strings.Contains(err.Error(), "Client.Timeout") {
			return errors.New("connection timed out - check your internet")
		}
		return errors.New("connection failed - check your internet")
	}

	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return fmt.Errorf("token rejected by Telegram (HTTP %d)", resp.StatusCode())
	}

	return nil
}

// validateGeminiKey validates a Gemini API key by listing models, which is
// lightweight and requires a valid key.
func validateGeminiKey(key string) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	client := resty.New().SetTimeout(validateTimeout)
	resp, err := client.R().
		SetQueryParam("key", key).
		SetError(&apiErr).
		Get("https://generativelanguage.googleapis.com/v1beta/models")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	switch resp.StatusCode() {
	case 200:
		return nil
	case 400, 401, 403:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", resp.StatusCode())
	default:
		return fmt.Errorf("unexpected response (HTTP %d)", resp.StatusCode())
	}
}

// waitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func waitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// fatalWithWait logs a fatal error and waits on Windows before exiting.
func fatalWithWait(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Error().Msg(msg)
	waitOnWindows()
	os.Exit(1)
}
