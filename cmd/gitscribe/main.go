// Package main provides the entry point for gitscribe, a serverless client
// for Git-hosting providers. It authenticates via the OAuth 2.0 Authorization
// Code flow with PKCE and uses the resulting credential to browse
// repositories and publish multi-file commits.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gitscribe/gitscribe/internal/buildinfo"
	"github.com/gitscribe/gitscribe/internal/cmd"
	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/logging"
	"github.com/gitscribe/gitscribe/internal/oauth"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	// Command-line flags to control the application's behavior.
	var login bool
	var logout bool
	var whoami bool
	var repos bool
	var branches string
	var tree string
	var catRepo string
	var publish string
	var branch string
	var message string
	var noBrowser bool
	var callbackPort int
	var configPath string
	var showVersion bool

	flag.BoolVar(&login, "login", false, "Log in to the Git-hosting provider using OAuth")
	flag.BoolVar(&logout, "logout", false, "Clear the stored credential")
	flag.BoolVar(&whoami, "whoami", false, "Show the authenticated account")
	flag.BoolVar(&repos, "repos", false, "List repositories visible to the account")
	flag.StringVar(&branches, "branches", "", "List branches of owner/repo")
	flag.StringVar(&tree, "tree", "", "Print the file tree of owner/repo[@ref]")
	flag.StringVar(&catRepo, "cat", "", "Print a file from owner/repo[@ref]; file path is the argument")
	flag.StringVar(&publish, "publish", "", "Publish file arguments to owner/repo as one commit")
	flag.StringVar(&branch, "branch", "", "Target branch for -publish (defaults to the repository default)")
	flag.StringVar(&message, "message", "", "Commit message for -publish")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.IntVar(&callbackPort, "callback-port", 0, "Override the OAuth callback port")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configuration file path")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("gitscribe %s (%s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	// Load .env before the configuration so environment overrides apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debugf("no .env loaded: %v", err)
	}

	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".gitscribe", "config.yaml")
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gitscribe: %v\n", err)
		os.Exit(1)
	}

	logging.SetDebugLevel(cfg.Debug)
	if cfg.LogDir != "" {
		if errLog := logging.ConfigureFileOutput(cfg.LogDir); errLog != nil {
			log.Warnf("file logging disabled: %v", errLog)
		}
	}

	switch {
	case login:
		opts := &cmd.LoginOptions{
			NoBrowser:    noBrowser,
			CallbackPort: callbackPort,
			Prompt:       stdinPrompt,
		}
		if err = cmd.DoLogin(cfg, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Login failed: %s\n", cmd.FriendlyLoginError(err))
			if oauth.IsType(err, oauth.ErrPortInUse) {
				os.Exit(oauth.ErrPortInUse.Code)
			}
			os.Exit(1)
		}
	case logout:
		exitOn(cmd.DoLogout(cfg))
	case whoami:
		exitOn(cmd.DoWhoami(cfg))
	case repos:
		exitOn(cmd.DoRepos(cfg))
	case branches != "":
		exitOn(cmd.DoBranches(cfg, branches))
	case tree != "":
		exitOn(cmd.DoTree(cfg, tree))
	case catRepo != "":
		if flag.NArg() != 1 {
			exitOn(errors.New("-cat requires exactly one file path argument"))
		}
		exitOn(cmd.DoCat(cfg, catRepo, flag.Arg(0)))
	case publish != "":
		exitOn(cmd.DoPublish(cfg, publish, branch, message, flag.Args()))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "gitscribe: %v\n", err)
	os.Exit(1)
}

// stdinPrompt reads one line from standard input for manual callback entry.
func stdinPrompt(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
