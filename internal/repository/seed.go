package repository

import "github.com/spec-kit/sales-crm/internal/domain"

func seedUser(id, username, password, name string, role domain.Role, manager, designation, territory string, target float64) domain.User {
	return domain.User{
		ID:          id,
		EmployeeID:  id,
		Username:    username,
		Password:    password,
		Name:        name,
		Email:       username + "@company.com",
		Phone:       "+1 555 010 " + id[len(id)-3:],
		Role:        role,
		Manager:     domain.StringPtr(manager),
		Department:  "Sales",
		Designation: designation,
		Territory:   territory,
		JoinDate:    "2023-01-01",
		IsActive:    domain.BoolPtr(true),
		Target:      target,
	}
}

// SeedUsers is the first-run employee list: one admin, two managers and their teams.
func SeedUsers() []domain.User {
	return []domain.User{
		seedUser("ADMIN001", "admin", "admin123", "System Administrator", domain.RoleAdmin, "", "Administrator", "", 0),
		seedUser("MGR001", "john.smith", "manager123", "John Smith", domain.RoleManager, "", "Regional Sales Manager", "North", 500000),
		seedUser("MGR002", "sarah.johnson", "manager123", "Sarah Johnson", domain.RoleManager, "", "Regional Sales Manager", "South", 450000),
		seedUser("EMP001", "mike.wilson", "emp123", "Mike Wilson", domain.RoleEmployee, "MGR001", "Sales Executive", "North", 150000),
		seedUser("EMP002", "emily.davis", "emp123", "Emily Davis", domain.RoleEmployee, "MGR001", "Sales Executive", "North", 150000),
		seedUser("EMP003", "david.brown", "emp123", "David Brown", domain.RoleEmployee, "MGR002", "Sales Executive", "South", 120000),
		seedUser("EMP004", "lisa.garcia", "emp123", "Lisa Garcia", domain.RoleEmployee, "MGR002", "Senior Sales Executive", "South", 180000),
	}
}

// SeedProducts is the first-run product catalog.
func SeedProducts() []domain.Product {
	return []domain.Product{
		{ID: "P001", Name: "CRM Software License", Category: "Software", Price: 1200},
		{ID: "P002", Name: "Implementation Service", Category: "Services", Price: 5000},
		{ID: "P003", Name: "Annual Support Plan", Category: "Services", Price: 2400},
		{ID: "P004", Name: "Training Workshop", Category: "Training", Price: 800},
		{ID: "P005", Name: "Data Migration", Category: "Services", Price: 3500},
	}
}
