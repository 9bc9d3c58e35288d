package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/document"
	"github.com/dealforge/docfin/factory"
	"github.com/dealforge/docfin/finance"
	"github.com/dealforge/docfin/loan"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func scheduleCmd() *cobra.Command {
	var (
		termsPath string
		policy    string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the amortization schedule for a terms file",
		Long: `Print the amortization schedule for a JSON or YAML terms file.

Examples:
  docfin schedule --terms deal.yaml
  docfin schedule --terms deal.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, err := factory.NewTermsFactory(finance.DayPolicy(policy)).ParseLoanFile(termsPath)
			if err != nil {
				return err
			}
			in, err := loan.ScheduleInputFor(terms)
			if err != nil {
				return err
			}
			sched, err := loan.NewCalculator(zap.NewNop(), nil).Schedule(cmd.Context(), in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sched)
			}

			tbl := document.Table{
				Headers:    []string{"No.", "Date", "Payment", "Principal", "Interest", "Balance"},
				RightAlign: []bool{true, false, true, true, true, true},
			}
			for _, r := range sched.Rows {
				label := strconv.Itoa(r.Month)
				if r.Balloon {
					label = "Balloon"
				}
				tbl.Rows = append(tbl.Rows, []string{label, r.Date.String(),
					finance.FormatCurrency(r.Payment), finance.FormatCurrency(r.Principal),
					finance.FormatCurrency(r.Interest), finance.FormatCurrency(r.EndingBalance)})
			}
			tbl.Rows = append(tbl.Rows, []string{"Total", "",
				finance.FormatCurrency(sched.TotalPayments), finance.FormatCurrency(sched.TotalPrincipal),
				finance.FormatCurrency(sched.TotalInterest), ""})

			doc := &document.Document{
				Title: "Amortization Schedule",
				Subtitle: fmt.Sprintf("%s at %s, payment %s",
					finance.FormatCurrency(terms.Principal), terms.RateDescription(), finance.FormatCurrency(in.MonthlyPayment)),
			}
			doc.AddSection("Loan "+terms.ID, tbl)

			body, err := document.Render(doc, document.FormatText)
			if err != nil {
				return err
			}
			_, err = out.Write(body)
			return err
		},
	}

	cmd.Flags().StringVarP(&termsPath, "terms", "t", "", "terms file (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&policy, "day-policy", string(finance.DayClamp28), "payment day policy when the file names none")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	_ = cmd.MarkFlagRequired("terms")

	return cmd
}

func renderCmd() *cobra.Command {
	var (
		termsPath string
		kind      string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a loan document from a terms file to stdout",
		Long: `Render a loan document with template prose. Nothing is stored.

Examples:
  docfin render --terms deal.yaml --kind promissory_note
  docfin render --terms deal.yaml --kind consumer_disclosure --format markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := loan.DocumentKind(kind)
			if !k.Valid() {
				return fmt.Errorf("unknown document kind %q", kind)
			}
			terms, err := factory.NewTermsFactory(finance.DayClamp28).ParseLoanFile(termsPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pkg, err := loan.NewCalculator(zap.NewNop(), nil).Build(ctx, terms, k, civil.DateOf(timeNow()))
			if err != nil {
				return err
			}
			doc, err := document.NewBuilder(document.StaticNarrator{}, zap.NewNop()).Loan(ctx, pkg)
			if err != nil {
				return err
			}
			body, err := document.Render(doc, document.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}

	cmd.Flags().StringVarP(&termsPath, "terms", "t", "", "terms file (.json, .yaml, .yml)")
	cmd.Flags().StringVarP(&kind, "kind", "k", string(loan.KindTermSheet), "document kind")
	cmd.Flags().StringVarP(&format, "format", "f", string(document.FormatText), "markdown or text")
	_ = cmd.MarkFlagRequired("terms")

	return cmd
}

func aprCmd() *cobra.Command {
	var (
		financed string
		payment  string
		charge   string
		term     int
	)

	cmd := &cobra.Command{
		Use:   "apr",
		Short: "Solve an APR",
		Long: `Solve the annual percentage rate for a level-payment loan, from either
the payment or the total finance charge.

Examples:
  docfin apr --financed 10000 --payment 322.67 --term 36
  docfin apr --financed 10000 --charge 1616.12 --term 36`,
		RunE: func(cmd *cobra.Command, args []string) error {
			af, err := decimal.NewFromString(financed)
			if err != nil {
				return fmt.Errorf("--financed: %w", err)
			}

			var res finance.APRResult
			switch {
			case payment != "":
				p, err := decimal.NewFromString(payment)
				if err != nil {
					return fmt.Errorf("--payment: %w", err)
				}
				res = finance.SolveAPR(af, p, term)
			case charge != "":
				c, err := decimal.NewFromString(charge)
				if err != nil {
					return fmt.Errorf("--charge: %w", err)
				}
				res = finance.SolveAPRFromFinanceCharge(af, c, term)
			default:
				return errors.New("one of --payment or --charge is required")
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Degenerate:
				fmt.Fprintln(out, "APR: not applicable (payments do not exceed the amount financed)")
			case !res.Converged:
				fmt.Fprintf(out, "APR: %s (estimate, did not converge in %d iterations)\n", finance.FormatAPR(res), res.Iterations)
			default:
				fmt.Fprintf(out, "APR: %s (%d iterations)\n", finance.FormatAPR(res), res.Iterations)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&financed, "financed", "", "amount financed")
	cmd.Flags().StringVar(&payment, "payment", "", "level monthly payment")
	cmd.Flags().StringVar(&charge, "charge", "", "total finance charge")
	cmd.Flags().IntVar(&term, "term", 0, "term in months")
	_ = cmd.MarkFlagRequired("financed")
	_ = cmd.MarkFlagRequired("term")

	return cmd
}
