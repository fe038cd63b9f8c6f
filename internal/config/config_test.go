package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		NumTopics:      100,
		Alpha:          0.1,
		Beta:           0.01,
		AlphaAS:        0.1,
		TotalIter:      50,
		NumPartitions:  4,
		InputPath:      "in.txt",
		OutputPath:     "out/",
		SampleRate:     1.0,
		NumThreads:     4,
		InputFormat:    Raw,
		InputSemiRate:  0.1,
		LDAAlgorithm:   ZenLDA,
		AccelMethod:    Alias,
		PartStrategy:   DBH,
		InitStrategy:   Random,
		ChkptInterval:  0,
		SaveInterval:   10,
		NumClasses:     0,
		TaskDeadline:   90 * time.Minute,
		Seed:           1,
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	assert.Nil(t, validConfig().Validate())
}

func TestValidateRejectsNonPositiveNumTopics(t *testing.T) {
	c := validConfig()
	c.NumTopics = 0
	err := c.Validate()
	assert.NotNil(t, err)
	assert.Equal(t, "numTopics", err.Field)
}

func TestValidateRejectsUnknownInputFormat(t *testing.T) {
	c := validConfig()
	c.InputFormat = "xml"
	err := c.Validate()
	assert.NotNil(t, err)
	assert.Equal(t, "inputFormat", err.Field)
}

func TestValidateRequiresSemiRateOnlyForSemiFormat(t *testing.T) {
	c := validConfig()
	c.InputFormat = Semi
	c.InputSemiRate = 0
	assert.NotNil(t, c.Validate())

	c.InputSemiRate = 0.2
	assert.Nil(t, c.Validate())
}

func TestValidateRejectsUnimplementedPartStrategy(t *testing.T) {
	c := validConfig()
	c.PartStrategy = ByTerm
	err := c.Validate()
	assert.NotNil(t, err)
	assert.Equal(t, "partStrategy", err.Field)
}

func TestValidateRejectsSparseLDAWithNonDefaultAccelMethod(t *testing.T) {
	c := validConfig()
	c.LDAAlgorithm = SparseLDA
	c.AccelMethod = FTree
	err := c.Validate()
	assert.NotNil(t, err)
	assert.Equal(t, "accelMethod", err.Field)
}

func TestValidateRejectsZeroTaskDeadline(t *testing.T) {
	c := validConfig()
	c.TaskDeadline = 0
	err := c.Validate()
	assert.NotNil(t, err)
	assert.Equal(t, "taskDeadline", err.Field)
}

func TestConfigErrorMessageNamesField(t *testing.T) {
	err := &ConfigError{Field: "alpha", Msg: "must be positive"}
	assert.Contains(t, err.Error(), "alpha")
	assert.Contains(t, err.Error(), "must be positive")
}
