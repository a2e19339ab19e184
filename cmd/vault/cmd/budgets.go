package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/spf13/cobra"
)

var budgetsCmd = &cobra.Command{
	Use:     "budgets",
	Aliases: []string{"budget"},
	Short:   "Show this month's budget progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := rateTable(cmd.Context())
		progress := vaultApp.Vault.BudgetProgress(table)
		return output(cmd.OutOrStdout(), progress, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tCATEGORY\tSPENT\tLIMIT\tUSED")
			for _, p := range progress {
				flag := ""
				if p.Over {
					flag = " (over)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%%s\n", p.Budget.ID, p.Budget.Category,
					money(p.Spent, table.Base), money(p.Budget.Limit, table.Base), p.Percent, flag)
			}
		})
	},
}

var budgetFlags struct {
	category string
	limit    string
	account  string
}

var budgetsAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a monthly budget",
	Example: `  vault budgets add --category Food --limit 400`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := parseAmount(budgetFlags.limit)
		if err != nil {
			return err
		}
		b, err := vaultApp.Vault.AddBudget(domain.Budget{
			Category:  budgetFlags.category,
			Limit:     limit,
			AccountID: budgetFlags.account,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added budget for %s (%s)\n", b.Category, b.ID)
		return nil
	},
}

var budgetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultApp.Vault.DeleteBudget(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted budget %s\n", args[0])
		return nil
	},
}

var categoryFlags struct {
	name   string
	kind   string
	filter string
}

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"category"},
	Short:   "List and manage categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		categories := vaultApp.Vault.Categories()
		if categoryFlags.filter != "" {
			categories = domain.CategoriesFor(categories, domain.TransactionType(categoryFlags.filter))
		}
		return output(cmd.OutOrStdout(), categories, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tNAME\tTYPE")
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Type)
			}
		})
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := vaultApp.Vault.AddCategory(domain.Category{
			Name: categoryFlags.name,
			Type: domain.CategoryType(categoryFlags.kind),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added category %s (%s)\n", c.Name, c.ID)
		return nil
	},
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category",
	Long:  "Delete a category. Transactions keep the category name they were filed under.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultApp.Vault.DeleteCategory(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
		return nil
	},
}

func init() {
	bf := budgetsAddCmd.Flags()
	bf.StringVar(&budgetFlags.category, "category", "", "category to cap (required)")
	bf.StringVar(&budgetFlags.limit, "limit", "", "monthly limit (required)")
	bf.StringVar(&budgetFlags.account, "account", "", "only count spending on this account")
	_ = budgetsAddCmd.MarkFlagRequired("category")
	_ = budgetsAddCmd.MarkFlagRequired("limit")
	budgetsCmd.AddCommand(budgetsAddCmd, budgetsDeleteCmd)

	categoriesCmd.Flags().StringVar(&categoryFlags.filter, "type", "", "only categories usable for income or expense")
	cf := categoriesAddCmd.Flags()
	cf.StringVar(&categoryFlags.name, "name", "", "category name (required)")
	cf.StringVar(&categoryFlags.kind, "type", string(domain.CategoryExpense), "income, expense or any")
	_ = categoriesAddCmd.MarkFlagRequired("name")
	categoriesCmd.AddCommand(categoriesAddCmd)
	categoriesCmd.AddCommand(categoriesDeleteCmd)
}
