package domain

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// OrgUnit describes one transfer target: the DN fragment relative to the
// directory base and the human labels shown to operators.
type OrgUnit struct {
	Key      string `json:"key" validate:"required,printascii"`
	Fragment string `json:"fragment" validate:"required,startswith=OU="`
	LabelEN  string `json:"label_en" validate:"required"`
	LabelAR  string `json:"label_ar" validate:"required"`
}

// Catalog is the closed set of organizational units a transfer may target.
// Keys preserves declaration order for stable listings.
type Catalog struct {
	units map[string]OrgUnit
	keys  []string
}

// DefaultCatalog returns the built-in departmental catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{units: make(map[string]OrgUnit)}
	for _, u := range []OrgUnit{
		{Key: "accountant", Fragment: "OU=Accountant,OU=New", LabelEN: "Accountant", LabelAR: "الحسابات"},
		{Key: "adminaffairs", Fragment: "OU=Administrative Affairs,OU=New", LabelEN: "Administrative Affairs", LabelAR: "الشؤون الإدارية"},
		{Key: "camera", Fragment: "OU=Camera,OU=New", LabelEN: "Camera", LabelAR: "الكاميرات"},
		{Key: "exhibit", Fragment: "OU=Exhibit,OU=New", LabelEN: "Exhibit", LabelAR: "المعارض"},
		{Key: "hr", Fragment: "OU=HR,OU=New", LabelEN: "Human Resources", LabelAR: "الموارد البشرية"},
		{Key: "it", Fragment: "OU=IT,OU=New", LabelEN: "IT", LabelAR: "تقنية المعلومات"},
		{Key: "audit", Fragment: "OU=Audit,OU=New", LabelEN: "Audit", LabelAR: "التدقيق"},
		{Key: "outwork", Fragment: "OU=Out Work,OU=New", LabelEN: "Out Work", LabelAR: "العمل الخارجي"},
		{Key: "projects", Fragment: "OU=Projects,OU=New", LabelEN: "Projects", LabelAR: "المشاريع"},
		{Key: "sales", Fragment: "OU=Sales,OU=New", LabelEN: "Sales", LabelAR: "المبيعات"},
		{Key: "supplies", Fragment: "OU=Supplies,OU=New", LabelEN: "Supplies", LabelAR: "المشتريات"},
		{Key: "secretarial", Fragment: "OU=Secretarial,OU=New", LabelEN: "Secretarial", LabelAR: "السكرتارية"},
	} {
		c.units[u.Key] = u
		c.keys = append(c.keys, u.Key)
	}
	return c
}

// LoadCatalog reads a catalog override from a JSON file. Every entry is
// validated and the whole load fails on the first invalid unit.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var units []OrgUnit
	if err := json.Unmarshal(raw, &units); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("catalog %s declares no units", path)
	}

	validate := validator.New()
	c := &Catalog{units: make(map[string]OrgUnit, len(units))}
	for i, u := range units {
		if err := validate.Struct(u); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%q): %w", i, u.Key, err)
		}
		if _, dup := c.units[u.Key]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate key %q", i, u.Key)
		}
		c.units[u.Key] = u
		c.keys = append(c.keys, u.Key)
	}
	return c, nil
}

// Lookup returns the unit for key and whether it exists.
func (c *Catalog) Lookup(key string) (OrgUnit, bool) {
	u, ok := c.units[key]
	return u, ok
}

// Keys returns the unit keys in declaration order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Units returns all units in declaration order.
func (c *Catalog) Units() []OrgUnit {
	out := make([]OrgUnit, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.units[k])
	}
	return out
}
