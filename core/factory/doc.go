// Package factory instantiates pluggable modules, such as metric sinks, from
// configuration. A module is described by a type name and a map of raw
// settings; the registered factory decodes the settings with Decode and
// returns the concrete implementation.
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	reg.Register("mqtt", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c mqtt.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return mqtt.NewPublisher(c)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "mqtt", Conf: map[string]any{"broker": "tcp://localhost:1883"}})
package factory
