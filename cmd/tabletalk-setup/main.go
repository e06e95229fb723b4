// Command tabletalk-setup creates and seeds the demo employee database
// so the chat pipeline has something to answer questions about.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tabletalk/tabletalk/internal/config"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		budget REAL
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		salary REAL,
		doj TEXT,
		manager_id INTEGER,
		performance_score REAL,
		skills TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		project_id INTEGER PRIMARY KEY,
		project_name TEXT NOT NULL,
		status TEXT,
		start_date TEXT,
		end_date TEXT,
		budget REAL
	)`,
	`CREATE TABLE IF NOT EXISTS employee_projects (
		employee_id INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		role TEXT,
		hours_worked REAL,
		contribution_percentage REAL,
		PRIMARY KEY (employee_id, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		sale_id INTEGER PRIMARY KEY,
		project_id INTEGER NOT NULL,
		amount REAL,
		sale_date TEXT
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		budget DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		salary DOUBLE PRECISION,
		doj DATE,
		manager_id INTEGER,
		performance_score DOUBLE PRECISION,
		skills TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		project_id SERIAL PRIMARY KEY,
		project_name TEXT NOT NULL,
		status TEXT,
		start_date DATE,
		end_date DATE,
		budget DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS employee_projects (
		employee_id INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		role TEXT,
		hours_worked DOUBLE PRECISION,
		contribution_percentage DOUBLE PRECISION,
		PRIMARY KEY (employee_id, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		sale_id SERIAL PRIMARY KEY,
		project_id INTEGER NOT NULL,
		amount DOUBLE PRECISION,
		sale_date DATE
	)`,
}

var seedStatements = []string{
	`INSERT INTO departments (name, budget) VALUES
		('Marketing', 500000),
		('Sales', 750000),
		('HR', 250000),
		('Engineering', 1200000),
		('Finance', 600000),
		('IT', 400000)`,
	`INSERT INTO employees (name, department, salary, doj, manager_id, performance_score, skills) VALUES
		('Alice', 'Marketing', 70000, '2021-03-15', NULL, 4.2, 'SEO, Content, Analytics'),
		('Bob', 'Sales', 65000, '2019-06-20', NULL, 3.8, 'Negotiation, CRM'),
		('Charlie', 'Marketing', 72000, '2022-01-10', 1, 4.5, 'Analytics, Copywriting'),
		('David', 'HR', 60000, '2018-11-05', NULL, 3.9, 'Recruiting, Onboarding'),
		('Eva', 'Marketing', 68000, '2020-09-23', 1, 4.1, 'Social Media, Analytics'),
		('Frank', 'Engineering', 95000, '2019-02-11', NULL, 4.7, 'Go, SQL, Kubernetes'),
		('Grace', 'Engineering', 88000, '2020-07-01', 6, 4.4, 'Python, SQL, ML'),
		('Henry', 'Finance', 78000, '2017-05-18', NULL, 4.0, 'Excel, Forecasting, SQL'),
		('Irene', 'IT', 71000, '2021-08-30', NULL, 3.7, 'Networking, Security'),
		('Jack', 'Sales', 62000, '2022-04-12', 2, 3.5, 'CRM, Presentations'),
		('Karen', 'Engineering', 102000, '2016-09-01', 6, 4.8, 'Go, Distributed Systems'),
		('Leo', 'Finance', 74000, '2019-12-02', 8, 4.1, 'Accounting, SQL')`,
	`INSERT INTO projects (project_name, status, start_date, end_date, budget) VALUES
		('Website Redesign', 'Completed', '2023-01-15', '2023-06-30', 120000),
		('CRM Migration', 'In Progress', '2023-03-01', '2023-12-15', 250000),
		('Data Warehouse', 'Completed', '2022-09-01', '2023-08-31', 400000),
		('Hiring Portal', 'In Progress', '2023-05-10', NULL, 80000)`,
	`INSERT INTO employee_projects (employee_id, project_id, role, hours_worked, contribution_percentage) VALUES
		(1, 1, 'Lead', 320, 40),
		(3, 1, 'Contributor', 280, 35),
		(5, 1, 'Contributor', 200, 25),
		(2, 2, 'Lead', 410, 55),
		(10, 2, 'Contributor', 330, 45),
		(6, 3, 'Lead', 520, 40),
		(7, 3, 'Contributor', 480, 35),
		(11, 3, 'Contributor', 350, 25),
		(4, 4, 'Lead', 150, 60),
		(9, 4, 'Contributor', 100, 40)`,
	`INSERT INTO sales (project_id, amount, sale_date) VALUES
		(1, 180000, '2023-07-15'),
		(2, 310000, '2023-11-01'),
		(3, 650000, '2023-09-10')`,
}

func main() {
	force := flag.Bool("force", false, "Reseed even if the employees table already has rows")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	driver, schema := "sqlite", sqliteSchema
	if cfg.Datastore.Engine == "postgres" {
		driver, schema = "postgres", postgresSchema
	} else {
		if dir := filepath.Dir(cfg.Datastore.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("Failed to create data directory: %v", err)
			}
		}
	}

	db, err := sql.Open(driver, cfg.Datastore.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM employees").Scan(&count); err != nil {
		log.Fatalf("Failed to inspect employees table: %v", err)
	}
	if count > 0 && !*force {
		fmt.Printf("Database already seeded (%d employees). Use -force to reseed.\n", count)
		return
	}
	if count > 0 {
		for _, table := range []string{"sales", "employee_projects", "projects", "employees", "departments"} {
			if _, err := db.Exec("DELETE FROM " + table); err != nil {
				log.Fatalf("Failed to clear %s: %v", table, err)
			}
		}
	}

	for _, stmt := range seedStatements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM employees").Scan(&count); err != nil {
		log.Fatalf("Failed to verify seed: %v", err)
	}
	fmt.Printf("Database setup completed successfully: %d employees across 5 tables.\n", count)
}
