// Package docstore adapts the raw gateway documents into domain types:
// one repository per aggregate, all reads and writes funneled through the
// store.Gateway surface.
package docstore

// Collections derives the logical collection paths for one tenant.
// Events and profiles are shared collections; registrations are a
// per-identity collection owned by the registrant.
type Collections struct {
	tenant string
}

func NewCollections(tenant string) Collections {
	if tenant == "" {
		tenant = "default"
	}
	return Collections{tenant: tenant}
}

func (c Collections) Events() string {
	return "tenants/" + c.tenant + "/events"
}

func (c Collections) Profiles() string {
	return "tenants/" + c.tenant + "/profiles"
}

func (c Collections) Registrations(userID string) string {
	return "tenants/" + c.tenant + "/registrations/" + userID
}
