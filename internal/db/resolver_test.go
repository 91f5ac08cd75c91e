package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/parquet2pg/internal/config"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

func TestGranularConnFlags_IsEmpty(t *testing.T) {
	assert.True(t, (&GranularConnFlags{}).IsEmpty())
	assert.True(t, (&GranularConnFlags{Database: "d"}).IsEmpty())
	assert.False(t, (&GranularConnFlags{Host: "h"}).IsEmpty())
	assert.False(t, (&GranularConnFlags{Port: 1}).IsEmpty())
	assert.False(t, (&GranularConnFlags{SSLMode: "require"}).IsEmpty())
}

func TestResolveConnectionParams_ConnectionFlagWins(t *testing.T) {
	env := &EnvVars{DatabaseURL: "postgresql://other@elsewhere/otherdb", PGSSLMODE: "verify-full"}

	cfg, err := ResolveConnectionParams("postgresql://loader:pw@db:5433/warehouse", nil, nil, env, nil)
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "warehouse", cfg.Database)
	assert.Equal(t, "loader", cfg.Username)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, "verify-full", cfg.SSLMode)
	assert.Equal(t, parquet2pg.DefaultApplicationName, cfg.AppName)
	assert.Equal(t, parquet2pg.AuthMethodStandard, cfg.AuthMethod)
}

func TestResolveConnectionParams_EnvConnectionStrings(t *testing.T) {
	env := &EnvVars{
		ConnectionString: "postgresql://a@primary/one",
		DatabaseURL:      "postgresql://b@secondary/two",
	}
	cfg, err := ResolveConnectionParams("", nil, nil, env, nil)
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Host)

	env.ConnectionString = ""
	cfg, err = ResolveConnectionParams("", nil, nil, env, nil)
	require.NoError(t, err)
	assert.Equal(t, "secondary", cfg.Host)
	assert.Equal(t, "prefer", cfg.SSLMode)
}

func TestResolveConnectionParams_DatabaseFlagOverridesConnectionString(t *testing.T) {
	cfg, err := ResolveConnectionParams("postgresql://u@h/original", &GranularConnFlags{Database: "override"}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Database)
}

func TestResolveConnectionParams_Conflict(t *testing.T) {
	_, err := ResolveConnectionParams("postgresql://u@h/d", &GranularConnFlags{Host: "x"}, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, parquet2pg.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "cannot specify both")
}

func TestResolveConnectionParams_GranularPrecedence(t *testing.T) {
	flags := &GranularConnFlags{Host: "flaghost"}
	env := &EnvVars{PGHOST: "envhost", PGPORT: "6000", PGUSER: "envuser", PGPASSWORD: "envpw", PGDATABASE: "envdb"}
	file := &config.ConnectionConfig{Host: "filehost", Port: 7000, Username: "fileuser", Database: "filedb", SSLMode: "require"}

	cfg, err := ResolveConnectionParams("", flags, nil, env, file)
	require.NoError(t, err)

	assert.Equal(t, "flaghost", cfg.Host)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, "envuser", cfg.Username)
	assert.Equal(t, "envpw", cfg.Password)
	assert.Equal(t, "envdb", cfg.Database)
	assert.Equal(t, "require", cfg.SSLMode)
}

func TestResolveConnectionParams_FileThenDefaults(t *testing.T) {
	file := &config.ConnectionConfig{Port: 7000, Username: "fileuser"}

	cfg, err := ResolveConnectionParams("", nil, nil, &EnvVars{}, file)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "fileuser", cfg.Username)
	assert.Equal(t, "postgres", cfg.Database)
	assert.Equal(t, "prefer", cfg.SSLMode)
}

func TestResolveConnectionParams_InvalidPGPORT(t *testing.T) {
	_, err := ResolveConnectionParams("", nil, nil, &EnvVars{PGPORT: "abc"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid $PGPORT")
}

func TestResolveConnectionParams_InvalidConnectionString(t *testing.T) {
	_, err := ResolveConnectionParams("not a connection string", nil, nil, nil, nil)
	assert.ErrorIs(t, err, parquet2pg.ErrInvalidConfig)
}

func TestResolveConnectionParams_AWSIAM(t *testing.T) {
	env := &EnvVars{AWSRegion: "eu-central-1"}

	cfg, err := ResolveConnectionParams("postgresql://iam_user@rds.example:5432/app", nil, &AWSIAMFlags{Enabled: true}, env, nil)
	require.NoError(t, err)
	assert.Equal(t, parquet2pg.AuthMethodAWSIAM, cfg.AuthMethod)
	assert.Equal(t, "eu-central-1", cfg.AWSRegion)

	cfg, err = ResolveConnectionParams("postgresql://iam_user@rds.example/app", nil,
		&AWSIAMFlags{Enabled: true, Region: "us-west-2"}, env, nil)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.AWSRegion)

	file := &config.ConnectionConfig{AuthMethod: "aws-iam", AWSRegion: "ap-south-1"}
	cfg, err = ResolveConnectionParams("postgresql://iam_user@rds.example/app", nil, nil, &EnvVars{}, file)
	require.NoError(t, err)
	assert.Equal(t, parquet2pg.AuthMethodAWSIAM, cfg.AuthMethod)
	assert.Equal(t, "ap-south-1", cfg.AWSRegion)
}

func TestResolveConnectionParams_AWSIAMRequiresRegion(t *testing.T) {
	_, err := ResolveConnectionParams("postgresql://u@rds/app", nil, &AWSIAMFlags{Enabled: true}, &EnvVars{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a region")
}
