package game

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Delays are in milliseconds.
type Delays struct {
	TrickSettle uint32 `yaml:"trickSettle"`
	TurnTimeout uint32 `yaml:"turnTimeout"`
}

var DefaultDelays = Delays{
	TrickSettle: 2000,
	TurnTimeout: 0,
}

func ms(v uint32) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (d Delays) TrickSettleDuration() time.Duration {
	return ms(d.TrickSettle)
}

// TurnTimeoutDuration is zero when turns never expire.
func (d Delays) TurnTimeoutDuration() time.Duration {
	return ms(d.TurnTimeout)
}

func ParseDelayConfig(delaysFile string) (Delays, error) {
	bytes, err := ioutil.ReadFile(delaysFile)
	if err != nil {
		return Delays{}, errors.Wrap(err, fmt.Sprintf("Error reading delay config file [%s]", delaysFile))
	}

	data := DefaultDelays
	err = yaml.Unmarshal(bytes, &data)
	if err != nil {
		return Delays{}, errors.Wrap(err, fmt.Sprintf("Error parsing delays YAML file [%s]", delaysFile))
	}

	return data, nil
}
