package agents

// DefaultDirectory is the built-in dealer network used until dealer data
// comes from the platform's partner service.
func DefaultDirectory() *Directory {
	return NewDirectory([]Dealer{
		{
			ID: "d-001", Name: "Bay Area Robotics", Coverage: "SF Bay Area",
			Address: "210 Townsend St, San Francisco, CA", Phone: "415-555-0101",
			Email: "sales@bayarearobotics.example", Active: true,
			ZipCodes:    []string{"94016", "94105", "94607"},
			Specialties: []string{"AMR installation", "maintenance", "fleet onboarding"},
		},
		{
			ID: "d-002", Name: "Valley Automation Partners", Coverage: "Central Valley",
			Address: "88 Fulton St, Fresno, CA", Phone: "559-555-0102",
			Email: "contact@valleyautomation.example", Active: true,
			ZipCodes:    []string{"93701", "93650"},
			Specialties: []string{"AGV", "conveyor integration"},
		},
		{
			ID: "d-003", Name: "Cascade Robotics Services", Coverage: "Pacific Northwest",
			Address: "412 Pine St, Seattle, WA", Phone: "206-555-0103",
			Email: "hello@cascaderobotics.example", Active: true,
			ZipCodes:    []string{"98101", "98052", "97201"},
			Specialties: []string{"AMR installation", "inspection drones"},
		},
		{
			ID: "d-004", Name: "Lone Star Material Handling", Coverage: "Texas Triangle",
			Address: "1500 Commerce St, Dallas, TX", Phone: "214-555-0104",
			Email: "info@lonestarmh.example", Active: true,
			ZipCodes:    []string{"75201", "77002", "78701"},
			Specialties: []string{"AGV", "picking arms", "maintenance"},
		},
	})
}

// DefaultCatalog is the built-in equipment catalog used until catalog data
// comes from the platform's inventory service.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Robot{
		{
			Name: "AMR-300", Category: "AMR", Active: true,
			Description: "Autonomous mobile robot for pallet transport in warehouses",
			UseCases:    []string{"warehouse", "logistics", "cold chain"},
			PayloadKg:   300, LeaseRateMonthly: 1200,
		},
		{
			Name: "AMR-150", Category: "AMR", Active: true,
			Description: "Compact autonomous mobile robot for tote and bin transport",
			UseCases:    []string{"warehouse", "fulfillment", "retail"},
			PayloadKg:   150, LeaseRateMonthly: 850,
		},
		{
			Name: "AGV-900", Category: "AGV", Active: true,
			Description: "Heavy duty guided vehicle for manufacturing lines",
			UseCases:    []string{"manufacturing", "automotive"},
			PayloadKg:   900, LeaseRateMonthly: 2100,
		},
		{
			Name: "PickArm-7", Category: "Picking Arm", Active: true,
			Description: "High speed bin picking arm with vision guidance",
			UseCases:    []string{"fulfillment", "ecommerce"},
			PayloadKg:   12, LeaseRateMonthly: 950,
		},
		{
			Name: "SkyCheck-2", Category: "Inspection Drone", Active: true,
			Description: "Indoor inspection drone for rack audits and cycle counts",
			UseCases:    []string{"warehouse", "inventory"},
			PayloadKg:   2, LeaseRateMonthly: 600,
		},
	})
}
