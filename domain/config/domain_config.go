package config

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Tree constraints
	MaxNodesPerTree   int
	MaxEdgesPerNode   int
	MaxNodeNameLength int

	// Registry constraints
	MaxTreeNameLength int

	// Merge settings
	ValidateAfterMerge bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerTree:    50000,
		MaxEdgesPerNode:    200,
		MaxNodeNameLength:  200,
		MaxTreeNameLength:  100,
		ValidateAfterMerge: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.MaxEdgesPerNode = 100
	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.MaxNodesPerTree = 200000
	config.MaxEdgesPerNode = 1000
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
