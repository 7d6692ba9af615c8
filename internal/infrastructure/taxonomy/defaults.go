package taxonomy

import "github.com/finanzas/backend/internal/domain/baseline"

// defaultEntries is the built-in rubro catalog. Aliases are matched after
// accent and case folding.
var defaultEntries = []Entry{
	// Mano de obra directa
	{Code: "MOD-ING", Kind: baseline.KindLabor, Category: "Mano de obra - Ingenieros",
		Aliases: []string{"ingeniero", "ingenieros", "ingeniero soporte", "engineer", "ingeniero senior", "ingeniero junior", "analista", "desarrollador", "developer", "tecnico"}},
	{Code: "MOD-SDM", Kind: baseline.KindLabor, Category: "Mano de obra - Service Delivery Manager",
		Aliases: []string{"sdm", "service delivery manager", "gerente de servicio", "delivery manager"}},
	{Code: "MOD-LEAD", Kind: baseline.KindLabor, Category: "Mano de obra - Lider tecnico",
		Aliases: []string{"lider", "lider tecnico", "tech lead", "team lead", "lead engineer", "lider de proyecto"}},
	{Code: "MOD-PM", Kind: baseline.KindLabor, Category: "Mano de obra - Gerencia de proyecto",
		Aliases: []string{"project manager", "pm", "gerente de proyecto", "coordinador"}},
	{Code: "MOD-ARQ", Kind: baseline.KindLabor, Category: "Mano de obra - Arquitectura",
		Aliases: []string{"arquitecto", "architect", "arquitecto de soluciones", "solution architect"}},

	// Gastos de servicio
	{Code: "GSV-REU", Kind: baseline.KindNonLabor, Category: "Gastos de servicio - Reuniones",
		Aliases: []string{"reuniones", "reunion", "meetings", "eventos"}},
	{Code: "GSV-CAP", Kind: baseline.KindNonLabor, Category: "Gastos de servicio - Capacitacion",
		Aliases: []string{"capacitacion", "entrenamiento", "training", "certificacion"}},
	{Code: "GSV-SUB", Kind: baseline.KindNonLabor, Category: "Gastos de servicio - Subcontratacion",
		Aliases: []string{"subcontratacion", "subcontrato", "outsourcing", "terceros"}},

	// Tecnologia
	{Code: "TEC-LIC", Kind: baseline.KindNonLabor, Category: "Tecnologia - Licencias",
		Aliases: []string{"licencias", "licencia", "licenses", "software", "suscripcion", "saas"}},
	{Code: "TEC-HW", Kind: baseline.KindNonLabor, Category: "Tecnologia - Hardware",
		Aliases: []string{"hardware", "equipos", "equipo", "laptops", "servidores fisicos"}},
	{Code: "TEC-TEL", Kind: baseline.KindNonLabor, Category: "Tecnologia - Telecomunicaciones",
		Aliases: []string{"telecomunicaciones", "telefonia", "comunicaciones", "enlaces"}},

	// Infraestructura
	{Code: "INF-CLD", Kind: baseline.KindNonLabor, Category: "Infraestructura - Nube",
		Aliases: []string{"nube", "cloud", "aws", "azure", "gcp", "hosting"}},
	{Code: "INF-DC", Kind: baseline.KindNonLabor, Category: "Infraestructura - Centro de datos",
		Aliases: []string{"centro de datos", "data center", "datacenter", "colocation"}},
	{Code: "INF-RED", Kind: baseline.KindNonLabor, Category: "Infraestructura - Redes",
		Aliases: []string{"redes", "red", "networking", "conectividad", "internet"}},

	// Viajes
	{Code: "TRV-NAC", Kind: baseline.KindNonLabor, Category: "Viajes - Nacionales",
		Aliases: []string{"viajes", "viaje", "travel", "viaticos", "viajes nacionales"}},
	{Code: "TRV-INT", Kind: baseline.KindNonLabor, Category: "Viajes - Internacionales",
		Aliases: []string{"viajes internacionales", "viaje internacional", "international travel"}},
}
