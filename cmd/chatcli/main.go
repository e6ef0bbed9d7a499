// Command chatcli drives the dialogue engine from a terminal, one utterance per line.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/intake-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/intake-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	orgID := flag.String("org", "demo", "org namespace for knowledge and contacts")
	mode := flag.String("mode", string(dialogue.ModeFAQ), "conversation mode: faq or appointment")
	sessionID := flag.String("session", "", "session id to resume (default: new session)")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	rt, err := bootstrap.BuildRuntime(ctx, cfg, awsCfg, prometheus.NewRegistry(), logger)
	if err != nil {
		logger.Error("failed to build dialogue runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}
	fmt.Printf("session %s (org=%s, mode=%s). Type /quit to exit, /state to dump the session.\n", *sessionID, *orgID, *mode)

	repl := &repl{engine: rt.Engine, orgID: *orgID, sessionID: *sessionID, mode: dialogue.ParseMode(*mode)}
	if err := repl.run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("chat session ended with error", "error", err)
		os.Exit(1)
	}
}

type repl struct {
	engine    dialogue.TurnProcessor
	orgID     string
	sessionID string
	mode      dialogue.Mode
}

func (r *repl) run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/state":
			if err := r.dumpState(ctx, out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			res, err := r.engine.HandleTurn(ctx, dialogue.TurnRequest{
				SessionID: r.sessionID,
				OrgID:     r.orgID,
				Utterance: line,
				Mode:      r.mode,
			})
			if err != nil {
				return err
			}
			if res.Suppressed {
				fmt.Fprintln(out, "(no response)")
			} else {
				fmt.Fprintf(out, "[%s] %s\n", res.Category, res.Answer)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func (r *repl) dumpState(ctx context.Context, out io.Writer) error {
	rec, err := r.engine.Session(ctx, r.sessionID)
	if err != nil {
		return err
	}
	st := rec.State
	fmt.Fprintf(out, "stage=%s turns=%d user_turns=%d progression=(%s, %d) asks=%d\n",
		st.Stage, len(st.Turns), st.UserTurnCount, st.LastProgression.Topic, st.LastProgression.Step, st.ContactAskCount)
	fmt.Fprintf(out, "profile: name=%q email=%q phone=%q\n", rec.Profile.Name, rec.Profile.Email, rec.Profile.Phone)
	return nil
}
