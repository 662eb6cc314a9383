// Package tui is the interactive terminal front end of the converter.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/fxconv/internal/services/converter"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	failure   = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F87"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(special).
			Padding(1, 2)

	amountStyle = lipgloss.NewStyle().Foreground(special).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(subtle)
	errorStyle  = lipgloss.NewStyle().Foreground(failure).Bold(true)
)

const (
	actionConvert = "convert"
	actionSwap    = "swap"
	actionHistory = "history"
	actionClear   = "clear"
	actionQuit    = "quit"
)

type converterAPI interface {
	Convert(ctx context.Context, req domain.ConversionRequest) (domain.ConversionResult, error)
	History() []domain.HistoryEntry
	ClearHistory(ctx context.Context) error
	Preferences(ctx context.Context) (domain.Preferences, error)
	SetPreferences(ctx context.Context, from, to string) error
}

// Option configures the terminal UI.
type Option func(*ui)

// WithIO reads answers from in and draws to out instead of the terminal.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(u *ui) {
		u.in = in
		u.out = out
	}
}

// WithAccessible switches forms to line-based prompts for screen readers.
func WithAccessible(accessible bool) Option {
	return func(u *ui) {
		u.accessible = accessible
	}
}

type ui struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

func (u *ui) form(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithInput(u.in).
		WithOutput(u.out).
		WithAccessible(u.accessible)
}

// Run shows the converter until the user quits or ctx is cancelled.
// fallback is the pair selected when no preference is stored.
// The menu is its own form so swap, history, clear and quit never depend on
// the amount; the amount is asked for only when converting.
func Run(ctx context.Context, api converterAPI, fallback domain.Pair, opts ...Option) error {
	u := &ui{in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(u)
	}

	prefs, err := api.Preferences(ctx)
	if err != nil {
		return err
	}
	pair := prefs.PairOr(fallback)

	var (
		amount  string
		status  string
		options = currencyOptions()
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(u.out, "\033[H\033[2J")
		fmt.Fprintln(u.out, headerStyle.Render("CURRENCY CONVERTER"))
		if status != "" {
			fmt.Fprintln(u.out, status)
		}

		action := actionConvert
		from, to := pair.From, pair.To
		err := u.form(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("From").
					Options(options...).
					Value(&from),
				huh.NewSelect[string]().
					Title("To").
					Options(options...).
					Value(&to),
				huh.NewSelect[string]().
					Title("Action").
					Options(
						huh.NewOption("Convert", actionConvert),
						huh.NewOption("Swap currencies", actionSwap),
						huh.NewOption("Show history", actionHistory),
						huh.NewOption("Clear history", actionClear),
						huh.NewOption("Quit", actionQuit),
					).
					Value(&action),
			),
		).RunWithContext(ctx)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		// accessible prompts do not watch ctx
		if err := ctx.Err(); err != nil {
			return err
		}

		if from != pair.From || to != pair.To {
			pair = domain.NewPair(from, to)
			if err := api.SetPreferences(ctx, pair.From, pair.To); err != nil {
				status = errorStyle.Render(err.Error())
				continue
			}
		}

		switch action {
		case actionQuit:
			return nil
		case actionSwap:
			pair = pair.Swap()
			if err := api.SetPreferences(ctx, pair.From, pair.To); err != nil {
				status = errorStyle.Render(err.Error())
				continue
			}
			status = mutedStyle.Render(fmt.Sprintf("Swapped to %s → %s", pair.From, pair.To))
		case actionHistory:
			status = RenderHistory(api.History())
		case actionClear:
			var confirm bool
			err := u.form(
				huh.NewGroup(
					huh.NewConfirm().
						Title("Clear conversion history?").
						Affirmative("Yes, clear").
						Negative("No").
						Value(&confirm),
				),
			).RunWithContext(ctx)
			if err != nil && !errors.Is(err, huh.ErrUserAborted) {
				return err
			}
			if !confirm {
				status = ""
				continue
			}
			if err := api.ClearHistory(ctx); err != nil {
				status = errorStyle.Render(err.Error())
				continue
			}
			status = mutedStyle.Render("History cleared")
		default:
			err := u.form(
				huh.NewGroup(
					huh.NewInput().
						Title(fmt.Sprintf("Amount (%s → %s)", pair.From, pair.To)).
						Placeholder("100").
						Value(&amount).
						Validate(func(s string) error {
							_, err := converter.ParseAmount(s)
							return err
						}),
				),
			).RunWithContext(ctx)
			if errors.Is(err, huh.ErrUserAborted) {
				// back to the menu
				status = ""
				continue
			}
			if err != nil {
				return err
			}

			result, err := api.Convert(ctx, domain.ConversionRequest{Amount: amount, From: pair.From, To: pair.To})
			if err != nil {
				status = RenderError(err)
				continue
			}
			status = RenderResult(result)
		}
	}
}

func currencyOptions() []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(domain.Currencies))
	for _, code := range domain.Currencies {
		options = append(options, huh.NewOption(code, code))
	}
	return options
}

// RenderResult formats a conversion as a card with both rates.
func RenderResult(r domain.ConversionResult) string {
	body := strings.Join([]string{
		amountStyle.Render(r.Summary()),
		"",
		mutedStyle.Render(r.RateLine()),
		mutedStyle.Render(r.InverseRateLine()),
	}, "\n")
	return resultStyle.Render(body)
}

// RenderError formats err for the status line. Only user-facing messages are shown.
func RenderError(err error) string {
	var vErr *domain.ValidationError
	var netErr *domain.NetworkError
	switch {
	case errors.As(err, &vErr):
		return errorStyle.Render(vErr.Message)
	case errors.As(err, &netErr):
		return errorStyle.Render(netErr.Error())
	default:
		return errorStyle.Render("Something went wrong: " + err.Error())
	}
}

// RenderHistory formats entries newest first, one per line.
func RenderHistory(entries []domain.HistoryEntry) string {
	if len(entries) == 0 {
		return mutedStyle.Render("No conversions yet")
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s %s → %s %s", domain.FormatAmount(e.Amount), e.From,
			domain.FormatAmount(e.ConvertedAmount), e.To)
		if ts := e.Time(); !ts.IsZero() {
			line += mutedStyle.Render("  " + ts.Local().Format("Jan 2 15:04"))
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Render(strings.Join(lines, "\n"))
}
