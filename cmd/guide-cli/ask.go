package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raine/telegram-recycling-bot/internal/config"
	"github.com/raine/telegram-recycling-bot/internal/guide"
	"github.com/raine/telegram-recycling-bot/internal/llm"
)

var mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

func newAskCmd() *cobra.Command {
	var (
		flags   itemFlags
		timeout time.Duration
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Describe an item and ask the guidance provider how to dispose of it",
		Long: `ask shows the four guide steps as an interactive form. Flags prefill
the form; when stdin is not a terminal the flags are used as they are.

The provider is configured the same way as the bot: GUIDANCE_PROVIDER,
GEMINI_API_KEY or OPENAI_API_KEY, from the environment or the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

			if term.IsTerminal(int(os.Stdin.Fd())) {
				if err := runItemForm(&flags); err != nil {
					return err
				}
			}
			acts, err := flags.actions()
			if err != nil {
				return err
			}
			s := walk(guide.NewState(), acts)

			config.LoadEnvFile()
			provider, err := llm.NewProvider(cmd.Context(), providerConfigFromEnv())
			if err != nil {
				return err
			}
			return runAsk(cmd.Context(), cmd.OutOrStdout(), s, provider, timeout)
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "how long to wait for the provider")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log provider calls")
	return cmd
}

func providerConfigFromEnv() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:      os.Getenv(config.EnvGuidanceProvider),
		GeminiAPIKey:  os.Getenv(config.EnvGeminiAPIKey),
		GeminiModel:   os.Getenv(config.EnvGeminiModel),
		OpenAIAPIKey:  os.Getenv(config.EnvOpenAIAPIKey),
		OpenAIBaseURL: os.Getenv(config.EnvOpenAIBaseURL),
		OpenAIModel:   os.Getenv(config.EnvOpenAIModel),
	}
}

// runAsk submits the completed form and prints the outcome. The request goes
// through the reducer so the CLI follows the same validation and failure rules
// as the bot.
func runAsk(ctx context.Context, out io.Writer, s guide.State, provider llm.GuidanceProvider, timeout time.Duration) error {
	s, eff := guide.Reduce(s, guide.Submit{})
	req, ok := eff.(guide.RequestGuidance)
	if !ok {
		return errors.New(s.Error)
	}

	requestID := uuid.New().String()
	log.Debug().Str("requestId", requestID).Str("description", req.Description).Msg("requesting guidance")

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := provider.GetGuidance(reqCtx, req.Description)
	if err != nil {
		s, _ = guide.Reduce(s, guide.GuidanceFailed{Generation: req.Generation, Err: err})
	} else {
		log.Debug().
			Str("requestId", requestID).
			Dur("elapsed", time.Since(start)).
			Int64("inputTokens", result.Usage.InputTokens).
			Int64("outputTokens", result.Usage.OutputTokens).
			Float64("costUSD", result.Usage.CostUSD).
			Msg("guidance received")
		s, _ = guide.Reduce(s, guide.GuidanceReceived{Generation: req.Generation, Guidance: result.Guidance})
	}

	if !s.HasResult() {
		log.Error().Err(s.LastFailure).Str("requestId", requestID).Msg("guidance request failed")
		return errors.New(s.Error)
	}

	fmt.Fprint(out, renderMarkdown(s.Guidance.Markdown()))

	if m, ok := guide.MapQuery(s.Item.UserLocation); ok {
		fmt.Fprintln(out, "Recycling centers near "+m.Location+":")
		fmt.Fprintln(out, "  "+m.SearchURL())
		if key := os.Getenv(config.EnvGoogleMapsAPIKey); key != "" {
			fmt.Fprintln(out, mutedStyle.Render("  embed: "+m.EmbedURL(key)))
		}
	}
	return nil
}

func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// runItemForm asks for the four guide steps, one group per step, starting
// from whatever the flags already hold.
func runItemForm(f *itemFlags) error {
	materialOpts := make([]huh.Option[string], len(guide.Materials))
	for i, m := range guide.Materials {
		materialOpts[i] = huh.NewOption(string(m), string(m))
	}
	sizeOpts := []huh.Option[string]{huh.NewOption("Skip", "")}
	for _, s := range guide.Sizes {
		sizeOpts = append(sizeOpts, huh.NewOption(string(s), string(s)))
	}
	conditionOpts := []huh.Option[string]{huh.NewOption("Skip", "")}
	for _, c := range guide.Conditions {
		conditionOpts = append(conditionOpts, huh.NewOption(string(c), string(c)))
	}

	// Normalize prefilled catalog values to their labels so the pickers
	// preselect them.
	var materials []string
	for _, raw := range f.materials {
		m, err := parseMaterial(raw)
		if err != nil {
			return err
		}
		materials = append(materials, string(m))
	}
	if f.size != "" {
		i, err := matchLabel(f.size, labels(guide.Sizes))
		if err != nil {
			return fmt.Errorf("size: %w", err)
		}
		f.size = string(guide.Sizes[i])
	}
	if f.condition != "" {
		i, err := matchLabel(f.condition, labels(guide.Conditions))
		if err != nil {
			return fmt.Errorf("condition: %w", err)
		}
		f.condition = string(guide.Conditions[i])
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What are you trying to recycle?").
				Placeholder("e.g. glass jar with metal lid").
				Value(&f.item).
				Validate(func(s string) error {
					if s == "" {
						return errors.New(guide.MsgItemNameRequired)
					}
					return nil
				}),
		).Title("Step 1 of 4: Item"),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("What is it made of?").
				Options(materialOpts...).
				Value(&materials).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return errors.New(guide.MsgMaterialsRequired)
					}
					return nil
				}),
			huh.NewInput().
				Title("Other materials").
				Value(&f.other),
		).Title("Step 2 of 4: Materials"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Size").Options(sizeOpts...).Value(&f.size),
			huh.NewSelect[string]().Title("Condition").Options(conditionOpts...).Value(&f.condition),
			huh.NewInput().Title("Plastic type or recycling code").Value(&f.plasticType),
			huh.NewInput().Title("Quantity").Value(&f.quantity),
			huh.NewInput().Title("Special features or concerns").Value(&f.features),
		).Title("Step 3 of 4: Details"),
		huh.NewGroup(
			huh.NewInput().
				Title("Your location").
				Description("City or postal code, used for the map search").
				Value(&f.location),
		).Title("Step 4 of 4: Location"),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("cancelled")
		}
		return err
	}
	f.materials = materials
	return nil
}
