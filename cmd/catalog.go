package cmd

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/pricing"
)

func parseCycle(val string) (model.BillingCycle, error) {
	switch c := model.BillingCycle(strings.ToLower(val)); c {
	case model.Monthly, model.Yearly:
		return c, nil
	}
	return "", errors.Newf("invalid billing cycle %q, use monthly or yearly", val)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func discount(c *model.Campaign) string {
	switch c.DiscountType {
	case model.DiscountPercentage:
		return fmt.Sprintf("%g%% off", c.DiscountValue)
	case model.DiscountFixedAmount:
		return money(c.DiscountValue) + " off"
	case model.DiscountFreeTrial:
		return fmt.Sprintf("%d day trial", c.TrialDays)
	}
	return string(c.DiscountType)
}

var plansCmd = &cobra.Command{
	Use:     "plans",
	Aliases: []string{"pricing"},
	Short:   "Show the pricing catalog",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the pricing plans",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		plans, err := a.svc.Catalog.Plans(a.ctx, !mustFlagBool(cmd, "all"))
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), plans)
			return nil
		}
		rows := make([][]string, 0, len(plans))
		for _, p := range plans {
			savings := ""
			if pct := pricing.YearlySavingsPercent(p); pct > 0 {
				savings = green(fmt.Sprintf("save %d%%", pct))
			}
			rows = append(rows, []string{p.ID, p.Name, string(p.Tier), money(p.MonthlyPrice), money(p.YearlyPrice), savings, cell(p.MaxProjects), cell(p.MaxTables), cell(p.Active)})
		}
		printTable(cmd.OutOrStdout(), []string{"id", "name", "tier", "monthly", "yearly", "", "projects", "tables", "active"}, rows)
		return nil
	}),
}

var campaignsListCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List the promotional campaigns",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		campaigns, err := a.svc.Catalog.Campaigns(a.ctx, !mustFlagBool(cmd, "all"))
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), campaigns)
			return nil
		}
		rows := make([][]string, 0, len(campaigns))
		for _, c := range campaigns {
			plans := "all"
			if len(c.PlanIDs) > 0 {
				plans = strings.Join(c.PlanIDs, ", ")
			}
			rows = append(rows, []string{c.ID, c.Name, discount(c), string(c.AppliesTo), plans, cell(c.StartDate), cell(c.EndDate), cell(c.Active)})
		}
		printTable(cmd.OutOrStdout(), []string{"id", "name", "discount", "cycle", "plans", "starts", "ends", "active"}, rows)
		return nil
	}),
}

var plansQuoteCmd = &cobra.Command{
	Use:   "quote [plan]",
	Short: "Show the best price for a plan with the running campaigns applied",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		cycle, err := parseCycle(mustFlagString(cmd, "cycle", true))
		if err != nil {
			return err
		}
		plan, price, err := a.svc.Catalog.Quote(a.ctx, args[0], cycle)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), map[string]any{"plan": plan, "cycle": cycle, "price": price})
			return nil
		}
		w := cmd.OutOrStdout()
		if !price.HasDiscount {
			fmt.Fprintf(w, "%s %s: %s\n", plan.Name, cycle, money(price.FinalPrice))
			return nil
		}
		fmt.Fprintf(w, "%s %s: %s %s\n", plan.Name, cycle, green(money(price.FinalPrice)), faint(money(price.OriginalPrice)))
		fmt.Fprintf(w, "%s saves %s\n", price.Campaign.Name, money(price.Discount))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(plansCmd)
	plansCmd.AddCommand(plansListCmd, campaignsListCmd, plansQuoteCmd)
	plansListCmd.Flags().Bool("all", false, "include inactive plans")
	campaignsListCmd.Flags().Bool("all", false, "include inactive campaigns")
	plansQuoteCmd.Flags().String("cycle", string(model.Monthly), "monthly or yearly")
}
