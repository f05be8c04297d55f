// Package reference assembles the master data snapshot that seeds the import
// template: branches, checkers, customers, products and staff.
package reference

// Branch is an operating location.
type Branch struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Manager string `json:"manager,omitempty"`
}

// Checker is a field agent collecting installments.
type Checker struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Surname    string `json:"surname,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	BranchID   int64  `json:"branch_id,omitempty"`
	BranchCode string `json:"branch_code,omitempty"`
}

// Customer is a hire-purchase buyer.
type Customer struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Surname     string `json:"surname,omitempty"`
	IDCard      string `json:"id_card,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
	BranchID    int64  `json:"branch_id,omitempty"`
	BranchCode  string `json:"branch_code,omitempty"`
	CheckerID   int64  `json:"checker_id,omitempty"`
	CheckerCode string `json:"checker_code,omitempty"`
}

// Product is an item sold on installments.
type Product struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	BranchID    int64   `json:"branch_id,omitempty"`
	BranchCode  string  `json:"branch_code,omitempty"`
}

// Staff roles returned by the employees endpoint.
const (
	RoleSales     = "sales"
	RoleCollector = "collector"
)

// Employee is a salesperson or collector.
type Employee struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Snapshot is an in-memory copy of the reference data.
type Snapshot struct {
	Branches  []Branch   `json:"branches"`
	Checkers  []Checker  `json:"checkers"`
	Customers []Customer `json:"customers"`
	Products  []Product  `json:"products"`
	Employees []Employee `json:"employees"`
}

// Salespeople returns employees with the sales role.
func (s *Snapshot) Salespeople() []Employee {
	return s.byRole(RoleSales)
}

// Collectors returns employees with the collector role.
func (s *Snapshot) Collectors() []Employee {
	return s.byRole(RoleCollector)
}

func (s *Snapshot) byRole(role string) []Employee {
	if s == nil {
		return nil
	}
	var out []Employee
	for _, e := range s.Employees {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}
