// Package doctor checks that config, credentials, the chat endpoint, and
// audio devices are ready.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/selineapp/seline/internal/audio"
	"github.com/selineapp/seline/internal/chat"
	"github.com/selineapp/seline/internal/config"
)

const pingTimeout = 5 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders one line per check.
func (r Report) String() string {
	var b strings.Builder
	for i, check := range r.Checks {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s", status, check.Name, check.Message)
	}
	return b.String()
}

// Probes are the live system calls doctor makes. Nil fields use the real
// implementation.
type Probes struct {
	Ping        func(ctx context.Context) (int, error)
	SelectInput func(ctx context.Context, input, fallback string) (audio.Selection, error)
	ListSinks   func(ctx context.Context) ([]audio.Device, error)
}

func (p Probes) withDefaults(cfg config.Config) Probes {
	if p.Ping == nil {
		backend := chat.NewOpenAI(chat.NewClient(chat.ClientOptions{
			APIKey:  cfg.Chat.APIKey,
			BaseURL: cfg.Chat.BaseURL,
		}), cfg.Chat.Model, 0)
		p.Ping = backend.Ping
	}
	if p.SelectInput == nil {
		p.SelectInput = audio.SelectDevice
	}
	if p.ListSinks == nil {
		p.ListSinks = audio.ListSinks
	}
	return p
}

// Run executes every check against loaded.
func Run(ctx context.Context, loaded config.Loaded, probes Probes) Report {
	cfg := loaded.Config
	probes = probes.withDefaults(cfg)

	checks := []Check{checkConfig(loaded), checkAPIKey(cfg)}
	if checks[1].Pass {
		checks = append(checks, checkChat(ctx, cfg, probes.Ping))
	}
	checks = append(checks, checkInput(ctx, cfg, probes.SelectInput))
	if cfg.Speech.Enable {
		checks = append(checks, checkOutput(ctx, cfg, probes.ListSinks))
	}
	if cfg.Clipboard.Enable {
		checks = append(checks, checkCommand(cfg.Clipboard.Cmd.Argv, "clipboard.cmd"))
	}
	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("using defaults (%s not found)", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(" with %d warning(s)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkAPIKey(cfg config.Config) Check {
	if strings.TrimSpace(cfg.Chat.APIKey) == "" {
		return Check{Name: "chat.api_key", Pass: false, Message: "no API key; set OPENAI_API_KEY or SELINE_API_KEY"}
	}
	return Check{Name: "chat.api_key", Pass: true, Message: "API key present"}
}

func checkChat(ctx context.Context, cfg config.Config, ping func(context.Context) (int, error)) Check {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	count, err := ping(ctx)
	if err != nil {
		message := chat.UserMessage(err)
		if message == "" {
			message = err.Error()
		}
		return Check{Name: "chat.endpoint", Pass: false, Message: fmt.Sprintf("%s (%s)", message, cfg.Chat.BaseURL)}
	}
	return Check{Name: "chat.endpoint", Pass: true, Message: fmt.Sprintf("%s reachable, %d model(s) listed", cfg.Chat.BaseURL, count)}
}

// checkInput runs live device selection to surface fallback issues.
func checkInput(ctx context.Context, cfg config.Config, selectInput func(context.Context, string, string) (audio.Selection, error)) Check {
	selection, err := selectInput(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.input", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", selection.Device.Label())
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.input", Pass: true, Message: message}
}

func checkOutput(ctx context.Context, cfg config.Config, listSinks func(context.Context) ([]audio.Device, error)) Check {
	sinks, err := listSinks(ctx)
	if err != nil {
		return Check{Name: "audio.output", Pass: false, Message: err.Error()}
	}
	sink, ok := audio.FindDevice(sinks, cfg.Speech.Sink)
	if !ok {
		return Check{Name: "audio.output", Pass: false, Message: fmt.Sprintf("speech sink %q not found", cfg.Speech.Sink)}
	}
	return Check{Name: "audio.output", Pass: true, Message: fmt.Sprintf("speaking through %s", sink.Label())}
}

func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found at %s", path)}
}
