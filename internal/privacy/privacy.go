// Package privacy computes the role-scoped subset of each collection an actor may read.
//
// Admins see everything. Managers see themselves and their direct reports; the
// hierarchy is two levels deep, so a manager's manager does not see the
// grand-reports. Everyone else sees only their own records.
package privacy

import "github.com/spec-kit/sales-crm/internal/domain"

// visibleUserIDs is the owner set used to filter records for non-admin actors.
func visibleUserIDs(actor *domain.User, users []domain.User) map[string]struct{} {
	ids := map[string]struct{}{actor.ID: {}}
	if actor.Role == domain.RoleManager {
		for _, u := range users {
			if u.ReportsTo(actor.ID) {
				ids[u.ID] = struct{}{}
			}
		}
	}
	return ids
}

// VisibleUsers returns the users the actor may see, in collection order.
func VisibleUsers(actor *domain.User, users []domain.User) []domain.User {
	if actor == nil {
		return []domain.User{}
	}
	if actor.Role == domain.RoleAdmin {
		return users
	}
	out := make([]domain.User, 0)
	for _, u := range users {
		if u.ID == actor.ID || (actor.Role == domain.RoleManager && u.ReportsTo(actor.ID)) {
			out = append(out, u)
		}
	}
	return out
}

// VisibleSales returns the sales records whose owner is visible to the actor.
func VisibleSales(actor *domain.User, users []domain.User, sales []domain.SalesRecord) []domain.SalesRecord {
	if actor == nil {
		return []domain.SalesRecord{}
	}
	if actor.Role == domain.RoleAdmin {
		return sales
	}
	ids := visibleUserIDs(actor, users)
	out := make([]domain.SalesRecord, 0)
	for _, s := range sales {
		if _, ok := ids[s.UserID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// VisibleAttendance returns the attendance records whose owner is visible to the actor.
func VisibleAttendance(actor *domain.User, users []domain.User, records []domain.AttendanceRecord) []domain.AttendanceRecord {
	if actor == nil {
		return []domain.AttendanceRecord{}
	}
	if actor.Role == domain.RoleAdmin {
		return records
	}
	ids := visibleUserIDs(actor, users)
	out := make([]domain.AttendanceRecord, 0)
	for _, a := range records {
		if _, ok := ids[a.UserID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// CanViewUserData reports whether the actor may read targetID's data.
func CanViewUserData(actor *domain.User, targetID string, users []domain.User) bool {
	if actor == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin || actor.ID == targetID {
		return true
	}
	if actor.Role != domain.RoleManager {
		return false
	}
	target, ok := domain.FindUser(users, targetID)
	return ok && target.ReportsTo(actor.ID)
}

// Team is a manager and the flat list of their direct reports.
type Team struct {
	Manager domain.User   `json:"manager"`
	Members []domain.User `json:"members"`
}

// TeamHierarchy returns nil unless managerID resolves to a user with the manager role.
func TeamHierarchy(managerID string, users []domain.User) *Team {
	manager, ok := domain.FindUser(users, managerID)
	if !ok || manager.Role != domain.RoleManager {
		return nil
	}
	team := &Team{Manager: *manager, Members: []domain.User{}}
	for _, u := range users {
		if u.ReportsTo(managerID) {
			team.Members = append(team.Members, u)
		}
	}
	return team
}

// ReportingStructure maps every manager id to their direct reports.
// Managers without reports map to an empty list.
func ReportingStructure(users []domain.User) map[string][]domain.User {
	structure := make(map[string][]domain.User)
	for _, u := range users {
		if u.Role == domain.RoleManager {
			if _, ok := structure[u.ID]; !ok {
				structure[u.ID] = []domain.User{}
			}
		}
	}
	for _, u := range users {
		managerID := u.ManagerID()
		if _, ok := structure[managerID]; ok {
			structure[managerID] = append(structure[managerID], u)
		}
	}
	return structure
}
