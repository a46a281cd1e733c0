package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rumpus-tracker/internal/endpoint"
	"github.com/rumpus-tracker/internal/query"
	"github.com/rumpus-tracker/internal/rumpus"
)

var searchFlags struct {
	params []string
	dryRun bool
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Describe the delegation key",
	Args:  cobra.NoArgs,
	RunE:  runKey,
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Search players",
	Long: `Search players. Every --param is a search parameter by its wire name.

Examples:
  rumpusctl players -p userIds=0ihetl,8mbjmz -p includeAliases=true
  rumpusctl players -p sort=-Subscribers -p limit=10`,
	Args: cobra.NoArgs,
	RunE: runPlayers,
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Search levels",
	Long: `Search levels. Every --param is a search parameter by its wire name.

Examples:
  rumpusctl levels -p levelIds=best,epic -p includeRecords=true
  rumpusctl levels -p sort=HiddenGem -p tower=true -p limit=64`,
	Args: cobra.NoArgs,
	RunE: runLevels,
}

func init() {
	rootCmd.AddCommand(keyCmd, playersCmd, levelsCmd)

	for _, cmd := range []*cobra.Command{playersCmd, levelsCmd} {
		cmd.Flags().StringArrayVarP(&searchFlags.params, "param", "p", nil, "search parameter as name=value (repeatable)")
		cmd.Flags().BoolVar(&searchFlags.dryRun, "dry-run", false, "print the request URL without sending it")
	}
}

// parseParams turns name=value pairs into query values. Repeated names
// accumulate.
func parseParams(pairs []string) (url.Values, error) {
	values := make(url.Values, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid param %q: expected name=value", pair)
		}
		values.Add(name, value)
	}
	return values, nil
}

func newClient(cmd *cobra.Command) (*rumpus.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return rumpus.New(&cfg.Rumpus, newLogger(cmd.ErrOrStderr()))
}

func runKey(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	info, err := client.DelegationKey(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), info)
}

func runPlayers(cmd *cobra.Command, args []string) error {
	values, err := parseParams(searchFlags.params)
	if err != nil {
		return err
	}
	q, err := query.ParsePlayerSearch(values)
	if err != nil {
		return err
	}
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	if searchFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), client.BaseURL()+endpoint.Players(q).Path)
		return nil
	}
	players, err := client.Players(cmd.Context(), q)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), players)
}

func runLevels(cmd *cobra.Command, args []string) error {
	values, err := parseParams(searchFlags.params)
	if err != nil {
		return err
	}
	q, err := query.ParseLevelSearch(values)
	if err != nil {
		return err
	}
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	if searchFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), client.BaseURL()+endpoint.Levels(q).Path)
		return nil
	}
	levels, err := client.Levels(cmd.Context(), q)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), levels)
}
