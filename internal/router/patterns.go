package router

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pattern maps a fixed natural-language trigger phrase to a fixed query
// template. The library is scanned in declaration order and the first
// pattern whose trigger is a case-insensitive substring of the request
// wins; order is therefore part of the contract, not an accident.
type Pattern struct {
	Trigger  string `yaml:"trigger"`
	Template string `yaml:"template"`
}

// PatternLibrary is an ordered set of patterns.
type PatternLibrary struct {
	patterns []Pattern
}

// NewPatternLibrary builds a library from the given patterns, keeping
// their order.
func NewPatternLibrary(patterns []Pattern) *PatternLibrary {
	return &PatternLibrary{patterns: patterns}
}

// LoadPatternLibrary reads an ordered pattern list from a YAML file.
func LoadPatternLibrary(path string) (*PatternLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("router: failed to read pattern library: %w", err)
	}
	var patterns []Pattern
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("router: failed to parse pattern library: %w", err)
	}
	for i, p := range patterns {
		if strings.TrimSpace(p.Trigger) == "" || strings.TrimSpace(p.Template) == "" {
			return nil, fmt.Errorf("router: pattern %d has an empty trigger or template", i)
		}
	}
	return NewPatternLibrary(patterns), nil
}

// Match returns the template of the first pattern whose trigger phrase is
// a case-insensitive substring of text. The second return reports whether
// any pattern matched.
func (l *PatternLibrary) Match(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, p := range l.patterns {
		if strings.Contains(lowered, strings.ToLower(p.Trigger)) {
			return p.Template, true
		}
	}
	return "", false
}

// Len returns the number of patterns in the library.
func (l *PatternLibrary) Len() int {
	return len(l.patterns)
}

// DefaultPatternLibrary returns the built-in library rendered for SQLite.
func DefaultPatternLibrary() *PatternLibrary {
	return DefaultPatternLibraryFor("SQLite")
}

// DefaultPatternLibraryFor returns the built-in employee-analytics pattern
// set: simple lookups first, then the canned multi-table analysis queries.
// Simple patterns precede broad ones so that a specific phrasing is never
// shadowed by a catch-all trigger. The time-based templates are rendered
// with the year-extraction function of the named dialect, since strftime
// and EXTRACT are not portable across engines.
func DefaultPatternLibraryFor(dialectName string) *PatternLibrary {
	yearOf := func(col string) string {
		if strings.EqualFold(dialectName, "PostgreSQL") {
			return fmt.Sprintf("EXTRACT(YEAR FROM %s)::INT", col)
		}
		return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", col)
	}
	return NewPatternLibrary([]Pattern{
		{
			Trigger:  "show me all employees",
			Template: "SELECT DISTINCT id, name, department, salary, doj, manager_id, performance_score, skills FROM employees",
		},
		{
			Trigger: "highest paid",
			Template: `SELECT DISTINCT name, department, salary
FROM employees
ORDER BY salary DESC
LIMIT 5`,
		},
		{
			Trigger: "how many employees are in each department",
			Template: `SELECT DISTINCT department, COUNT(*) AS employee_count
FROM employees
GROUP BY department`,
		},
		{
			Trigger: "group the results by department",
			Template: `SELECT DISTINCT department,
       COUNT(*) AS employee_count,
       AVG(salary) AS avg_salary,
       AVG(performance_score) AS avg_performance
FROM employees
GROUP BY department`,
		},
		{
			Trigger: "average salary in each department",
			Template: `SELECT DISTINCT department, AVG(salary) AS avg_salary
FROM employees
GROUP BY department`,
		},
		{
			Trigger: "project performance metrics",
			Template: `SELECT DISTINCT p.project_name,
       p.status,
       p.budget,
       COALESCE(s.amount, 0) AS revenue,
       COALESCE(s.amount - p.budget, -p.budget) AS profit,
       COUNT(DISTINCT ep.employee_id) AS team_size,
       COALESCE(SUM(ep.hours_worked), 0) AS total_hours
FROM projects p
LEFT JOIN sales s ON p.project_id = s.project_id
LEFT JOIN employee_projects ep ON p.project_id = ep.project_id
GROUP BY p.project_id, p.project_name, p.status, p.budget, s.amount
ORDER BY profit DESC`,
		},
		{
			Trigger: "employee performance and contributions",
			Template: `SELECT DISTINCT e.name,
       e.department,
       COALESCE(e.performance_score, 0) AS performance_score,
       COUNT(DISTINCT ep.project_id) AS projects_involved,
       COALESCE(SUM(ep.hours_worked), 0) AS total_hours,
       COALESCE(AVG(ep.contribution_percentage), 0) AS avg_contribution
FROM employees e
LEFT JOIN employee_projects ep ON e.id = ep.employee_id
GROUP BY e.id, e.name, e.department, e.performance_score
ORDER BY e.performance_score DESC`,
		},
		{
			Trigger: "department analysis",
			Template: `SELECT DISTINCT e.department,
       COUNT(DISTINCT e.id) AS employee_count,
       COALESCE(AVG(e.salary), 0) AS avg_salary,
       COALESCE(AVG(e.performance_score), 0) AS avg_performance,
       COUNT(DISTINCT p.project_id) AS total_projects
FROM employees e
LEFT JOIN employee_projects ep ON e.id = ep.employee_id
LEFT JOIN projects p ON ep.project_id = p.project_id
GROUP BY e.department`,
		},
		{
			Trigger: "time-based trends",
			Template: fmt.Sprintf(`SELECT DISTINCT %s AS year,
       COUNT(DISTINCT p.project_id) AS projects_started,
       COALESCE(SUM(p.budget), 0) AS total_budget
FROM projects p
GROUP BY %s
ORDER BY year`, yearOf("p.start_date"), yearOf("p.start_date")),
		},
		{
			Trigger: "hiring trends",
			Template: fmt.Sprintf(`SELECT DISTINCT %s AS hire_year,
       COUNT(*) AS new_employees
FROM employees
GROUP BY %s
ORDER BY hire_year`, yearOf("doj"), yearOf("doj")),
		},
		{
			Trigger: "employee skills",
			Template: `SELECT DISTINCT department, skills, COUNT(*) AS employee_count
FROM employees
GROUP BY department, skills`,
		},
		{
			Trigger: "performance",
			Template: `SELECT DISTINCT department,
       AVG(performance_score) AS avg_performance,
       COUNT(*) AS employee_count
FROM employees
GROUP BY department
ORDER BY avg_performance DESC`,
		},
	})
}
