package core

import "time"

// recentCount is the size of the dashboard's recent-activity widget.
const recentCount = 5

type (
	GroupAlert struct {
		GroupID string     `json:"groupId"`
		Name    string     `json:"name"`
		Icon    string     `json:"icon"`
		Spend   Money      `json:"spend"`
		Budget  Money      `json:"budget"`
		Ratio   float64    `json:"ratio"`
		Level   AlertLevel `json:"level"`
	}

	GroupBudgetRow struct {
		GroupID string  `json:"groupId"`
		Name    string  `json:"name"`
		Icon    string  `json:"icon"`
		Spend   Money   `json:"spend"`
		Budget  Money   `json:"budget"`
		Ratio   float64 `json:"ratio"`
	}

	GroupExpense struct {
		GroupID string `json:"groupId"`
		Name    string `json:"name"`
		Amount  Money  `json:"amount"`
	}

	DashboardModel struct {
		Balance       Money            `json:"balance"`
		TotalIncome   Money            `json:"totalIncome"`
		TotalExpense  Money            `json:"totalExpense"`
		Alerts        []GroupAlert     `json:"alerts"`
		GroupBudgets  []GroupBudgetRow `json:"groupBudgets"`
		GroupExpenses []GroupExpense   `json:"groupExpenses"`
		Recent        []Transaction    `json:"recent"`
	}

	ReportModel struct {
		GroupFilter  GroupFilter      `json:"groupFilter"`
		TimeFilter   TimeFilter       `json:"timeFilter"`
		Transactions []Transaction    `json:"transactions"`
		TotalIncome  Money            `json:"totalIncome"`
		TotalExpense Money            `json:"totalExpense"`
		Categories   []CategoryAmount `json:"categories"`
		Daily        []DailyTotal     `json:"daily"`
	}
)

// BuildDashboard composes the dashboard screen model from a ledger
// snapshot. It recomputes everything on every call; the input is small by
// design and derived values are never cached.
func BuildDashboard(txs []Transaction, groups []Group) DashboardModel {
	model := DashboardModel{
		Balance:      Balance(txs),
		TotalIncome:  TotalByType(txs, TypeIncome),
		TotalExpense: TotalByType(txs, TypeExpense),
		Recent:       RecentTransactions(txs, recentCount),
	}

	for _, g := range groups {
		spend := GroupSpend(txs, g.ID)
		ratio := BudgetRatio(spend, g.Budget)

		model.GroupBudgets = append(model.GroupBudgets, GroupBudgetRow{
			GroupID: g.ID,
			Name:    g.Name,
			Icon:    g.Icon,
			Spend:   spend,
			Budget:  g.Budget,
			Ratio:   ratio,
		})

		if level := ClassifyAlert(ratio); level != AlertNone {
			model.Alerts = append(model.Alerts, GroupAlert{
				GroupID: g.ID,
				Name:    g.Name,
				Icon:    g.Icon,
				Spend:   spend,
				Budget:  g.Budget,
				Ratio:   ratio,
				Level:   level,
			})
		}

		// Groups with no spend stay out of the pie.
		if spend.Cents > 0 {
			model.GroupExpenses = append(model.GroupExpenses, GroupExpense{
				GroupID: g.ID,
				Name:    g.Name,
				Amount:  spend,
			})
		}
	}

	return model
}

// BuildReport composes the report screen model for a filter combination.
// now drives the current-month filter and nothing else.
func BuildReport(txs []Transaction, gf GroupFilter, tf TimeFilter, now time.Time) ReportModel {
	filtered := FilterView(txs, gf, tf, now)
	return ReportModel{
		GroupFilter:  gf,
		TimeFilter:   tf,
		Transactions: filtered,
		TotalIncome:  TotalByType(filtered, TypeIncome),
		TotalExpense: TotalByType(filtered, TypeExpense),
		Categories:   CategoryBreakdown(filtered),
		Daily:        DailySeries(filtered),
	}
}
