package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/spf13/cobra"
)

var subsCmd = &cobra.Command{
	Use:     "subs",
	Aliases: []string{"subscriptions"},
	Short:   "List and manage subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSubscriptions(cmd, vaultApp.Vault.Subscriptions(), true)
	},
}

var subFlags struct {
	name      string
	cost      string
	frequency string
	next      string
	category  string
	trialEnd  string
	note      string
}

var subsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a subscription",
	Example: `  vault subs add --name Netflix --cost 15.99 --next 2024-07-01
  vault subs add --name Spotify --cost 10 --trial-end 2024-07-14`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := parseAmount(subFlags.cost)
		if err != nil {
			return err
		}
		freq, err := domain.ParseFrequency(subFlags.frequency)
		if err != nil {
			return err
		}
		next, err := parseDate(subFlags.next)
		if err != nil {
			return err
		}
		s := domain.Subscription{
			Name:            subFlags.name,
			Cost:            cost,
			Frequency:       freq,
			NextBillingDate: next,
			Category:        subFlags.category,
			Description:     subFlags.note,
		}
		if subFlags.trialEnd != "" {
			end, err := parseDate(subFlags.trialEnd)
			if err != nil {
				return err
			}
			s.IsTrial = true
			s.TrialEndDate = &end
		}

		added, err := vaultApp.Vault.AddSubscription(s)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s, next billing %s (%s)\n", added.Name, added.NextBillingDate, added.ID)
		return nil
	},
}

var subsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultApp.Vault.DeleteSubscription(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted subscription %s\n", args[0])
		return nil
	},
}

var subsUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Subscriptions billing in the next 7 days",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSubscriptions(cmd, vaultApp.Vault.UpcomingBills(), false)
	},
}

var subsTrialsCmd = &cobra.Command{
	Use:   "trials",
	Short: "Trials ending in the next 48 hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSubscriptions(cmd, vaultApp.Vault.ExpiringTrials(), false)
	},
}

var subsReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Advance billing dates that are in the past",
	RunE: func(cmd *cobra.Command, args []string) error {
		if vaultApp.Vault.ReconcileSubscriptions() {
			fmt.Fprintln(cmd.OutOrStdout(), "Billing dates updated.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "All billing dates are current.")
		}
		return nil
	},
}

func printSubscriptions(cmd *cobra.Command, subs []domain.Subscription, burnRate bool) error {
	currency := vaultApp.Vault.Settings().Currency
	err := output(cmd.OutOrStdout(), subs, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tCOST\tFREQUENCY\tNEXT\tTRIAL ENDS")
		for _, s := range subs {
			trial := "-"
			if s.IsTrial && s.TrialEndDate != nil {
				trial = s.TrialEndDate.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, money(s.Cost, currency), s.Frequency, s.NextBillingDate, trial)
		}
	})
	if err != nil || asJSON || !burnRate {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nMonthly burn rate: %s\n", money(vaultApp.Vault.BurnRate(), currency))
	return nil
}

func init() {
	f := subsAddCmd.Flags()
	f.StringVar(&subFlags.name, "name", "", "subscription name (required)")
	f.StringVar(&subFlags.cost, "cost", "", "cost per billing period (required)")
	f.StringVar(&subFlags.frequency, "frequency", string(domain.Monthly), "monthly or yearly")
	f.StringVar(&subFlags.next, "next", "", "next billing date (default today)")
	f.StringVar(&subFlags.category, "category", "", "category name")
	f.StringVar(&subFlags.trialEnd, "trial-end", "", "end of the free trial, marks the subscription as a trial")
	f.StringVar(&subFlags.note, "note", "", "description")
	_ = subsAddCmd.MarkFlagRequired("name")
	_ = subsAddCmd.MarkFlagRequired("cost")

	subsCmd.AddCommand(subsAddCmd, subsDeleteCmd, subsUpcomingCmd, subsTrialsCmd, subsReconcileCmd)
}
