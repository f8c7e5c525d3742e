package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// The spreadsheet the catalog is imported from has grown several spellings
// for the same column over the years. Each field resolves through a
// prioritized alias list: the first present, non-empty key wins. Keeping the
// table here isolates the ambiguity at the ingestion boundary; everything
// past the decoder sees typed records only.
var serviceAliases = map[string][]string{
	"code":     {"codigo", "código", "clave", "code"},
	"name":     {"nombre", "servicio", "descripcion", "name"},
	"duration": {"duracion", "duración", "minutos", "duration"},
	"price":    {"precio", "importe", "costo", "price"},
	"kind":     {"tipo", "categoria", "kind"},
	"stock":    {"inventario", "stock", "requiere_inventario"},
	"sku":      {"sku", "insumo", "producto"},
}

var providerAliases = map[string][]string{
	"id":        {"id", "clave", "usuario"},
	"name":      {"nombre", "medico", "médico", "name"},
	"specialty": {"especialidad", "specialty"},
	"color":     {"color"},
	"rule":      {"horario", "regla", "schedule"},
	"calendar":  {"calendario", "calendar_id", "correo_calendario"},
}

// DecodeService builds a typed Service from a loosely-keyed spreadsheet row.
func DecodeService(row map[string]string) (Service, error) {
	code, ok := resolve(row, serviceAliases["code"])
	if !ok {
		return Service{}, fmt.Errorf("catalog: service row missing code")
	}
	name, ok := resolve(row, serviceAliases["name"])
	if !ok {
		return Service{}, fmt.Errorf("catalog: service %q missing name", code)
	}

	svc := Service{Code: code, Name: name, Kind: KindConsult, DurationMinutes: 30}

	if raw, ok := resolve(row, serviceAliases["duration"]); ok {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return Service{}, fmt.Errorf("catalog: service %q has bad duration %q", code, raw)
		}
		svc.DurationMinutes = minutes
	}
	if raw, ok := resolve(row, serviceAliases["price"]); ok {
		cents, err := parsePriceCents(raw)
		if err != nil {
			return Service{}, fmt.Errorf("catalog: service %q has bad price %q", code, raw)
		}
		svc.PriceCents = cents
	}
	if raw, ok := resolve(row, serviceAliases["kind"]); ok {
		svc.Kind = normalizeKind(raw)
	}
	if raw, ok := resolve(row, serviceAliases["stock"]); ok {
		svc.TracksStock = parseTruthy(raw)
	}
	if raw, ok := resolve(row, serviceAliases["sku"]); ok {
		svc.SKU = raw
	}
	if svc.TracksStock && svc.SKU == "" {
		return Service{}, fmt.Errorf("catalog: service %q tracks stock but has no sku", code)
	}
	return svc, nil
}

// DecodeProvider builds a typed Provider from a loosely-keyed row.
func DecodeProvider(row map[string]string) (Provider, error) {
	id, ok := resolve(row, providerAliases["id"])
	if !ok {
		return Provider{}, fmt.Errorf("catalog: provider row missing id")
	}
	name, ok := resolve(row, providerAliases["name"])
	if !ok {
		return Provider{}, fmt.Errorf("catalog: provider %q missing name", id)
	}

	p := Provider{ID: id, DisplayName: name}
	if v, ok := resolve(row, providerAliases["specialty"]); ok {
		p.Specialty = v
	}
	if v, ok := resolve(row, providerAliases["color"]); ok {
		p.Color = v
	}
	if v, ok := resolve(row, providerAliases["rule"]); ok {
		p.ScheduleRule = v
	}
	if v, ok := resolve(row, providerAliases["calendar"]); ok {
		p.CalendarID = v
	}
	return p, nil
}

// resolve returns the first present, non-empty value among the aliases,
// matching keys case-insensitively and ignoring surrounding whitespace.
func resolve(row map[string]string, aliases []string) (string, bool) {
	normalized := make(map[string]string, len(row))
	for k, v := range row {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	for _, alias := range aliases {
		if v, ok := normalized[alias]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// parsePriceCents accepts "1200", "1200.50" and "$1,200.50".
func parsePriceCents(raw string) (int64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount < 0 {
		return 0, fmt.Errorf("bad price: %q", raw)
	}
	return int64(amount*100 + 0.5), nil
}

func normalizeKind(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "laboratorio", "lab":
		return KindLab
	case "procedimiento", "procedure":
		return KindProcedure
	default:
		return KindConsult
	}
}

func parseTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "si", "sí", "yes", "true", "x":
		return true
	default:
		return false
	}
}
