package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/ioncon/internal/service"
	"github.com/matthewbaird/ioncon/internal/types"
)

var errNotAuthorized = errors.New("not authorized")

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the IONCON records",
	Example: `  ioncon list
  ioncon list -o yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	authUser     string
	authDivision string
	authCompany  string
	authProgram  string
	authBit      int
	authGrant    string
)

var authorityCmd = &cobra.Command{
	Use:   "authority",
	Short: "Check (or, on the local gateway, grant) a user's program authority",
	Example: `  ioncon authority --user JDOE --division AAA
  ioncon authority --user JDOE --grant 11`,
	Args: cobra.NoArgs,
	RunE: runAuthority,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "output format (table, json, yaml)")

	authorityCmd.Flags().StringVar(&authUser, "user", "", "user id")
	authorityCmd.Flags().StringVar(&authDivision, "division", "", "division; empty checks company wide")
	authorityCmd.Flags().StringVar(&authCompany, "company", "", "company")
	authorityCmd.Flags().StringVar(&authProgram, "program", "CRZ009", "program the authority applies to")
	authorityCmd.Flags().IntVar(&authBit, "bit", 1, "position of the authority bit")
	authorityCmd.Flags().StringVar(&authGrant, "grant", "", "authority bitstring to store (local gateway only)")
	_ = authorityCmd.MarkFlagRequired("user")
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	resp, err := service.NewRecordService(e.gateway, e.log).List(ctx)
	if err != nil {
		return err
	}
	rows := types.FromAlphaRows(types.FilterByKPID(resp.Items, types.KPID))

	out := cmd.OutOrStdout()
	switch listOutput {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(rows)
	case "table":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PK01\tPK02\tPK03\tAL30\tAL35")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.PK01, r.PK02, r.PK03, r.AL30, r.AL35)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", listOutput)
}

func runAuthority(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if authGrant != "" {
		if e.local == nil {
			return errors.New("--grant needs the local gateway")
		}
		if err := e.local.GrantAuthority(ctx, authDivision, authUser, authProgram, authGrant); err != nil {
			return err
		}
	}

	ok, err := service.NewRecordService(e.gateway, e.log).
		CheckAuthority(ctx, authCompany, authDivision, authUser, authProgram, authBit)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s: authorized=%t\n", authUser, authDivision, authProgram, ok)
	if !ok {
		return errNotAuthorized
	}
	return nil
}
