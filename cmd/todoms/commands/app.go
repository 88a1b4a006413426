package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/apiclient"
	"github.com/benvon/todoms/internal/config"
	"github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/session"
	"github.com/benvon/todoms/internal/todos"
	"github.com/benvon/todoms/internal/view"
)

var errNotLoggedIn = errors.New(`not logged in: run "todoms login" first`)

// app is the client stack a command runs against
type app struct {
	cfg     *config.ClientConfig
	logger  *zap.Logger
	client  *apiclient.Client
	session *session.Session
	todos   *todos.Controller
}

// load builds the client stack and resumes any stored session
func (o *rootOptions) load(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadClient(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.apiURL != "" {
		cfg.APIURL = strings.TrimRight(o.apiURL, "/")
	}
	if o.credentials != "" {
		cfg.CredentialsFile = o.credentials
	}

	log, err := logger.NewCLILogger(cfg.Debug || o.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sortKey, err := view.ParseSortKey(cfg.DefaultSort)
	if err != nil {
		return nil, fmt.Errorf("invalid default sort: %w", err)
	}

	client := apiclient.New(cfg.APIURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		apiclient.WithLogger(log),
	)
	sess := session.New(client, session.NewFileStore(cfg.CredentialsFile), log)
	if err := sess.Resume(cmd.Context()); err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		client:  client,
		session: sess,
		todos:   todos.New(client, sess, todos.WithLogger(log), todos.WithSortKey(sortKey)),
	}, nil
}

func (a *app) close() {
	a.todos.Close()
	_ = logger.Sync(a.logger)
}

func (a *app) requireSession() error {
	if !a.session.Valid() {
		return errNotLoggedIn
	}
	return nil
}

// loadTodos fetches the collection and turns a fetch failure into an error
func (a *app) loadTodos(cmd *cobra.Command) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if !a.todos.Load(cmd.Context()) {
		return errors.New(a.todos.Snapshot().LastError)
	}
	return nil
}

// resolveID accepts a full id or a unique prefix of one held in the collection
func (a *app) resolveID(arg string) (string, error) {
	if _, ok := a.todos.Find(arg); ok {
		return arg, nil
	}
	var match string
	for _, t := range a.todos.Snapshot().Items {
		if strings.HasPrefix(t.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", arg)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no todo with id %q", arg)
	}
	return match, nil
}

// report prints a success notification or returns an error one
func (a *app) report(cmd *cobra.Command) error {
	n := a.todos.Snapshot().Notification
	if n == nil {
		return nil
	}
	if n.Kind == todos.KindError {
		return errors.New(n.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), n.Message)
	return nil
}

// readLine prompts on stderr and reads one line from the command input
func readLine(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func userLabel(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Email
}
