package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/doozitravel/gateway/internal/backend"
	"github.com/doozitravel/gateway/pkg/availability"
)

// gatewayChecker asks a running gateway instead of the backend, so the
// gateway's own local checks and metrics apply.
type gatewayChecker struct {
	client *backend.Client
}

func (g gatewayChecker) CheckUsername(ctx context.Context, username string) (bool, error) {
	q := url.Values{"username": {username}}
	resp, err := g.client.Do(ctx, "gateway_check_username", http.MethodGet, "/api/auth/check-username?"+q.Encode(), "", nil)
	if err != nil {
		return false, err
	}
	if e := resp.Err(http.StatusBadRequest, availability.FailedMessage); e != nil {
		return false, e
	}
	if msg := cast.ToString(resp.Body["error"]); msg != "" {
		return false, &backend.Error{Status: http.StatusBadRequest, Message: msg}
	}
	return cast.ToBool(resp.Body["available"]), nil
}

func newUsernameCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "username",
		Short: "Username availability",
	}

	var (
		interval time.Duration
		current  string
	)
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Debounce usernames typed on stdin and check the latest one",
		Long: `watch treats every line on stdin as the new content of a username field.
Checks are debounced and superseded exactly as in the signup form, so only
the result for the latest settled input is printed. With --current, your own
username is reported as current and never checked:

  printf 'j\njo\njoe_travels\n' | doozictl username watch --current joe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backend.New(opts.gatewayURL)
			if err != nil {
				return err
			}
			return watchUsernames(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(),
				gatewayChecker{client: client}, opts.debounce, interval, current)
		},
	}
	watch.Flags().DurationVar(&interval, "interval", 0, "pause between lines, to replay typing speed")
	watch.Flags().StringVar(&current, "current", "", "your current username, which is never checked")

	cmd.AddCommand(watch)
	return cmd
}

// watchUsernames feeds lines from in to a Debouncer and prints every
// settled result to out. It returns once the result for the last line has
// been printed. current is the user's own username, or "".
func watchUsernames(ctx context.Context, in io.Reader, out io.Writer, c availability.Checker, delay, interval time.Duration, current string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		mu      sync.Mutex
		printed availability.Result
		notify  = make(chan struct{}, 1)
	)
	d := availability.NewDebouncer(c,
		availability.WithDelay(delay),
		availability.WithCurrent(current),
		availability.OnResult(func(r availability.Result) {
			if r.State == availability.Pending || r.Username == "" {
				return
			}
			state := string(r.State)
			if r.State == availability.Idle {
				state = "current"
			}
			mu.Lock()
			fmt.Fprintf(out, "%s\t%s\t%s\n", r.Username, state, r.Message)
			printed = r
			mu.Unlock()
			select {
			case notify <- struct{}{}:
			default:
			}
		}),
	)
	defer d.Close()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		d.Input(sc.Text())
		if interval > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	wait, cancel := context.WithTimeout(ctx, delay+30*time.Second)
	defer cancel()
	last, err := d.Await(wait)
	if err != nil {
		return fmt.Errorf("wait for last check: %w", err)
	}
	if last.Username == "" {
		return nil
	}
	// Await can return before the subscriber has written the result.
	for {
		mu.Lock()
		done := printed.Username == last.Username && printed.State == last.State
		mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-notify:
		case <-wait.Done():
			return fmt.Errorf("wait for last check: %w", wait.Err())
		}
	}
}
