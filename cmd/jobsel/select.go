package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixml/jobsel"
	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/selection"
	"github.com/helixml/jobsel/internal/log"
)

// operatorSymbols are tried in order, so two character symbols win over
// their one character prefixes.
var operatorSymbols = []string{">=", "<=", "!=", "==", "=", "<", ">"}

func selectCmd() *cobra.Command {
	var (
		criteria   []string
		extensions []string
		attrs      []string
		user       string
		host       string
		perm       string
		status     bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select jobs from the stored job table",
		Long: `Select jobs from the stored job table.

Each --criteria flag is one criterion of the form name[.resource]<op>value,
where op is one of = != < <= > >=. Criteria are applied in the order
given. A criterion on the queue attribute restricts the walk to that queue.

Examples:
  jobsel select -c job_state=Q -c Resource_List.nodes>2
  jobsel select --status --attr job_state --attr Job_Owner -c queue=batch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseCriteria(criteria)
			if err != nil {
				return err
			}
			p, err := attribute.ParsePerm(perm)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			slogger := log.Configure(cfg).Slog()

			client, err := jobsel.New(clientOptions(cfg, slogger)...)
			if err != nil {
				return fmt.Errorf("create jobsel client: %w", err)
			}
			defer func() { _ = client.Close() }()

			kind := service.KindSelectJobs
			if status {
				kind = service.KindSelectStatus
			}
			result, err := client.Select(cmd.Context(), service.Query{
				Kind:       kind,
				Criteria:   parsed,
				Requester:  service.Requester{User: user, Host: host, Perm: p},
				Extensions: extensions,
				Attributes: attrs,
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringArrayVarP(&criteria, "criteria", "c", nil, "Criterion name[.resource]<op>value (repeatable)")
	cmd.Flags().StringArrayVar(&extensions, "ext", nil, "Query extension: summarize_arrays, exec_only (repeatable)")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "Attribute to include in status blocks (repeatable)")
	cmd.Flags().StringVar(&user, "user", os.Getenv("USER"), "Requesting user")
	cmd.Flags().StringVar(&host, "host", "", "Requesting host")
	cmd.Flags().StringVar(&perm, "perm", "user", "Requester role: user, operator, manager")
	cmd.Flags().BoolVar(&status, "status", false, "Return status blocks instead of job identifiers")

	return cmd
}

func parseCriteria(raw []string) ([]selection.Criterion, error) {
	out := make([]selection.Criterion, 0, len(raw))
	for _, s := range raw {
		c, err := parseCriterion(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// parseCriterion parses name[.resource]<op>value.
func parseCriterion(s string) (selection.Criterion, error) {
	for i := 0; i < len(s); i++ {
		for _, sym := range operatorSymbols {
			if !strings.HasPrefix(s[i:], sym) {
				continue
			}
			op, err := selection.ParseOperator(sym)
			if err != nil {
				return selection.Criterion{}, err
			}
			name := strings.TrimSpace(s[:i])
			if name == "" {
				return selection.Criterion{}, fmt.Errorf("criterion %q has no attribute name", s)
			}
			name, resource, _ := strings.Cut(name, ".")
			return selection.Criterion{
				Name:     name,
				Resource: resource,
				Operator: op,
				Value:    strings.TrimSpace(s[i+len(sym):]),
			}, nil
		}
	}
	return selection.Criterion{}, fmt.Errorf("criterion %q has no operator", s)
}

type attributeOutput struct {
	Name     string `json:"name"`
	Resource string `json:"resource,omitempty"`
	Value    string `json:"value"`
}

type statusOutput struct {
	ID         string            `json:"id"`
	Attributes []attributeOutput `json:"attributes"`
}

func writeResult(w io.Writer, result service.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if result.Kind() == service.KindSelectStatus {
		out := make([]statusOutput, 0, result.Count())
		for _, b := range result.Statuses() {
			attrs := make([]attributeOutput, 0, len(b.Attributes))
			for _, a := range b.Attributes {
				attrs = append(attrs, attributeOutput{Name: a.Name, Resource: a.Resource, Value: a.Value})
			}
			out = append(out, statusOutput{ID: b.JobID, Attributes: attrs})
		}
		return enc.Encode(out)
	}
	ids := result.JobIDs()
	if ids == nil {
		ids = []string{}
	}
	return enc.Encode(ids)
}
