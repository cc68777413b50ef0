// Package mqtt provides MQTT client connectivity for devtrack.
//
// Devices that speak MQTT publish reports on {prefix}/report/{device_id};
// devtrack publishes the latest record of every device, retained, on
// {prefix}/device/{device_id}/state and its own online/offline status on
// {prefix}/system/status. The status topic doubles as the Last Will, so
// subscribers see "offline" when the service dies without a clean shutdown.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllReports(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("report on %s: %s", topic, payload)
//	        return nil
//	    })
//
//	err = client.Publish(client.Topics().DeviceState("phone1"), state, 1, true)
//
// # Thread Safety
//
// All Client methods are safe for concurrent use.
package mqtt
