package styles

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// StateView is the persisted launch state shown by `waypoint state`.
type StateView struct {
	Mode           entity.AppMode
	HasRunBefore   bool
	Route          *entity.RouteConfig
	Now            time.Time
	LastPushPrompt time.Time
	PushGranted    bool
	InstallID      string
	PendingURL     string
	CookieCount    int
	DatabasePath   string
}

// LaunchRenderer renders launch state and cookie listings.
type LaunchRenderer struct {
	theme *Theme
}

// NewLaunchRenderer creates a renderer with the given theme.
func NewLaunchRenderer(theme *Theme) *LaunchRenderer {
	return &LaunchRenderer{theme: theme}
}

// RenderState renders the launch state summary.
func (r *LaunchRenderer) RenderState(v StateView) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(r.row(IconRoute, "mode", r.mode(v.Mode, v.HasRunBefore)))

	if v.Route != nil {
		sb.WriteString(r.row(IconGlobe, "destination", r.theme.Normal.Render(v.Route.DestinationURL)))
		expiry := v.Route.ExpiresAt.Local().Format(time.DateTime)
		if v.Route.IsExpired(v.Now) {
			expiry += " " + r.theme.WarningStyle.Render("(expired)")
		}
		sb.WriteString(r.row(IconClock, "expires", expiry))
	} else {
		sb.WriteString(r.row(IconGlobe, "destination", r.theme.Subtle.Render("none")))
	}

	if v.PendingURL != "" {
		sb.WriteString(r.row(IconCursor, "override", r.theme.Highlight.Render(v.PendingURL)))
	}

	push := r.theme.Subtle.Render("never asked")
	if !v.LastPushPrompt.IsZero() {
		granted := r.theme.ErrorStyle.Render("denied")
		if v.PushGranted {
			granted = r.theme.SuccessStyle.Render("granted")
		}
		push = fmt.Sprintf("%s, asked %s", granted, v.LastPushPrompt.Local().Format(time.DateTime))
	}
	sb.WriteString(r.row(IconBell, "push", push))

	sb.WriteString(r.row(IconCookie, "cookies", fmt.Sprintf("%d", v.CookieCount)))
	if v.InstallID != "" {
		sb.WriteString(r.row(IconInfo, "install id", r.theme.Subtle.Render(v.InstallID)))
	}
	if v.DatabasePath != "" {
		sb.WriteString(r.row(IconDatabase, "store", r.theme.Subtle.Render(v.DatabasePath)))
	}
	return sb.String()
}

func (r *LaunchRenderer) mode(mode entity.AppMode, hasRun bool) string {
	switch mode {
	case entity.ModePrimary:
		return r.theme.Badge.Render("primary")
	case entity.ModeLegacy:
		return r.theme.BadgeMuted.Render("legacy") + " " + r.theme.Subtle.Render("(sticky)")
	}
	if hasRun {
		return r.theme.BadgeMuted.Render("unset")
	}
	return r.theme.BadgeMuted.Render("first launch")
}

func (r *LaunchRenderer) row(icon, label, value string) string {
	return fmt.Sprintf("  %s %s %s\n",
		r.theme.Highlight.Render(icon),
		r.theme.Subtitle.Render(fmt.Sprintf("%-12s", label)),
		value,
	)
}

// RenderCookies lists the jar grouped by domain.
func (r *LaunchRenderer) RenderCookies(jar entity.CookieJar, showValues bool) string {
	if jar.Len() == 0 {
		return fmt.Sprintf("\n  %s %s\n", r.theme.Subtle.Render(IconCookie), r.theme.Subtle.Render("cookie jar is empty"))
	}

	var sb strings.Builder
	sb.WriteString("\n")
	current := ""
	for _, rec := range jar.Flatten() {
		if rec.Domain != current {
			current = rec.Domain
			sb.WriteString(fmt.Sprintf("  %s %s\n", r.theme.Highlight.Render(IconGlobe), r.theme.Title.Render(current)))
		}
		line := fmt.Sprintf("    %s %s", r.theme.Subtle.Render(IconCursor), r.theme.Normal.Render(rec.Name))
		if showValues {
			line += " " + r.theme.Subtle.Render("= "+rec.Value())
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString(fmt.Sprintf("\n  %s\n", r.theme.Subtle.Render(fmt.Sprintf("%d cookies across %d domains", jar.Len(), len(jar.Domains())))))
	return sb.String()
}

// RenderSuccess renders a one-line confirmation.
func (r *LaunchRenderer) RenderSuccess(msg string) string {
	return fmt.Sprintf("\n  %s %s\n", r.theme.SuccessStyle.Render(IconCheck), msg)
}

// RenderError renders an error message.
func (r *LaunchRenderer) RenderError(err error) string {
	return fmt.Sprintf("\n  %s %s\n", r.theme.ErrorStyle.Render(IconX), r.theme.ErrorStyle.Render(err.Error()))
}

// RenderPhase renders a phase transition line for `waypoint run`.
func (r *LaunchRenderer) RenderPhase(state entity.PhaseState) string {
	badge := r.theme.BadgeMuted
	if state.Phase == entity.PhaseWebContainer {
		badge = r.theme.Badge
	}
	line := fmt.Sprintf("  %s %s", r.theme.Highlight.Render(IconRoute), badge.Render(state.Phase.String()))
	if state.Destination != "" {
		line += " " + r.theme.Normal.Render(state.Destination)
	}
	return line
}
