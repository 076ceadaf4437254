package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oumizumi/Kairo-sub002/internal/app"
	"github.com/oumizumi/Kairo-sub002/internal/classifier"
	"github.com/oumizumi/Kairo-sub002/internal/client"
)

// remoteFlags point classification and generation at a running API server.
type remoteFlags struct {
	server string
	token  string
}

func (r *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.server, "server", "", "Kairo API base URL, e.g. http://localhost:8000")
	cmd.Flags().StringVar(&r.token, "token", "", "access token for --server")
}

func (r *remoteFlags) client(c *cli) *client.Client {
	if r.server == "" {
		return nil
	}
	return client.New(r.server, client.WithTokens(r.token, ""), client.WithLogger(c.logger))
}

// chain builds the classifier: the API server when remote is set, else the
// configured model, else heuristics only.
func (c *cli) chain(ctx context.Context, data *app.Data, remote *client.Client) (*classifier.Chain, error) {
	var primary classifier.Classifier
	switch {
	case remote != nil:
		primary = classifier.NewRemote(remote, data.Store)
	default:
		model, err := app.NewLLM(ctx, c.cfg, c.logger)
		if err != nil {
			return nil, err
		}
		if model != nil {
			primary = classifier.NewLLM(model, data.Store)
		}
	}
	return classifier.NewChain(primary, classifier.NewHeuristic(data.Store), c.logger), nil
}

func newClassifyCmd(c *cli) *cobra.Command {
	var remote remoteFlags

	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Extract intent, course, program, year and term from a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := c.data(ctx)
			if err != nil {
				return err
			}
			chain, err := c.chain(ctx, data, remote.client(c))
			if err != nil {
				return err
			}

			res, err := chain.Classify(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if c.format != formatText {
				return encode(cmd.OutOrStdout(), c.format, res)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "intent:     %s\n", res.Intent)
			if res.Program != "" {
				fmt.Fprintf(w, "program:    %s\n", res.Program)
			}
			if res.Year > 0 {
				fmt.Fprintf(w, "year:       %d\n", res.Year)
			}
			if res.Term != "" {
				fmt.Fprintf(w, "term:       %s\n", res.Term)
			}
			if res.Course != "" {
				fmt.Fprintf(w, "course:     %s\n", res.Course)
			}
			fmt.Fprintf(w, "confidence: %.2f (%s)\n", res.Confidence, res.Source)
			return nil
		},
	}
	remote.register(cmd)
	return cmd
}
