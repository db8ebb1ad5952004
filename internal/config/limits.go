package config

// Limits bound the world data accepted by the stricter validator.
type Limits struct {
	MinPool     int `yaml:"min_pool" env:"FIREVERSE_MIN_POOL" validate:"min=0,max=1000"`
	MaxPool     int `yaml:"max_pool" env:"FIREVERSE_MAX_POOL" validate:"required,min=1,max=1000"`
	MaxEpisodes int `yaml:"max_episodes" env:"FIREVERSE_MAX_EPISODES" validate:"required,min=1,max=10000"`
}

func DefaultLimits() Limits {
	return Limits{
		MinPool:     1,
		MaxPool:     50,
		MaxEpisodes: 500,
	}
}
