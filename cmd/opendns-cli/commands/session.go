package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"opendns-stats/internal/scrapers/opendns"
	"opendns-stats/lib/configutil"
	"opendns-stats/lib/restyutil"
	"os"
	"strings"

	"golang.org/x/term"
)

type Config struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	NetworkId        string `json:"network_id"`
	LoginUrl         string `json:"login_url"`
	CsvUrl           string `json:"csv_url"`
	NetworkListUrl   string `json:"network_list_url"`
	MaxPages         int    `json:"max_pages"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
}

// readConfig reads the config file, a missing file means every value will
// be prompted for.
func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, falling back to prompts", "path", path)
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config '%s': %w", path, err)
	}
	return cfg, nil
}

// prompter asks the user for values the config did not provide.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// terminal is the file descriptor of `in` when it is a terminal, -1 otherwise.
	terminal int
}

func newPrompter(in io.Reader, out io.Writer) prompter {
	p := prompter{in: bufio.NewReader(in), out: out, terminal: -1}
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		p.terminal = int(file.Fd())
	}
	return p
}

func (p prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("%s must not be empty", strings.ToLower(label))
	}
	return line, nil
}

// askSecret is ask without echoing the input when reading from a terminal.
func (p prompter) askSecret(label string) (string, error) {
	if p.terminal < 0 {
		return p.ask(label)
	}

	fmt.Fprintf(p.out, "%s: ", label)
	secret, err := term.ReadPassword(p.terminal)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("%s must not be empty", strings.ToLower(label))
	}
	return string(secret), nil
}

// fillCredentials prompts for the username and password when they are
// missing from the config.
func (p prompter) fillCredentials(cfg *Config) error {
	if cfg.Username == "" {
		username, err := p.ask("Username")
		if err != nil {
			return err
		}
		cfg.Username = username
	}
	if cfg.Password == "" {
		password, err := p.askSecret("Password")
		if err != nil {
			return err
		}
		cfg.Password = password
	}
	return nil
}

func (cfg Config) loaderOptions() (opendns.Options, error) {
	opts := opendns.Options{
		NetworkId:        cfg.NetworkId,
		LoginUrl:         cfg.LoginUrl,
		CsvUrl:           cfg.CsvUrl,
		NetworkListUrl:   cfg.NetworkListUrl,
		MaxPages:         cfg.MaxPages,
		CloudflareBypass: cfg.CloudflareBypass,
	}
	if *dumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(*dumpHttp)
		if err != nil {
			return opendns.Options{}, fmt.Errorf("create http dump directory: %w", err)
		}
		opts.HttpDump = output
	}
	return opts, nil
}

// login creates a loader from `cfg` and signs in, the caller must Close
// the returned loader.
func login(ctx context.Context, cfg Config) (*opendns.Loader, error) {
	opts, err := cfg.loaderOptions()
	if err != nil {
		return nil, err
	}
	loader, err := opendns.NewLoader(opts)
	if err != nil {
		return nil, err
	}

	slog.Info("logging in", "username", cfg.Username)
	err = loader.Login(ctx, opendns.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		loader.Close()
		return nil, err
	}
	return loader, nil
}

func isNetworkId(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// selectNetwork points `loader` at the network `query` names, a query that
// is not a numeric id is resolved against the account's network list.
func selectNetwork(ctx context.Context, loader *opendns.Loader, query string) (opendns.UserNetworkDescriptor, error) {
	query = strings.TrimSpace(query)
	if isNetworkId(query) {
		loader.SetNetworkId(query)
		return opendns.UserNetworkDescriptor{NetworkId: query}, nil
	}

	networks, err := loader.LoadAllUserNetworks(ctx)
	if err != nil {
		return opendns.UserNetworkDescriptor{}, err
	}
	network, err := opendns.ResolveNetwork(networks, query)
	if err != nil {
		return opendns.UserNetworkDescriptor{}, err
	}
	slog.Info("resolved network", "query", query, "id", network.NetworkId, "name", network.NetworkName)
	loader.SetNetworkId(network.NetworkId)
	return network, nil
}
