package config

type AppConfig struct {
	Server   ServerConfig
	Log      LogConfig
	Auth     AuthConfig
	Provider ProviderConfig
	Limits   LimitsConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	authCfg, err := LoadAuth()
	if err != nil {
		return AppConfig{}, err
	}
	providerCfg, err := LoadProvider()
	if err != nil {
		return AppConfig{}, err
	}
	limitsCfg, err := LoadLimits()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:   serverCfg,
		Log:      logCfg,
		Auth:     authCfg,
		Provider: providerCfg,
		Limits:   limitsCfg,
	}, nil
}
