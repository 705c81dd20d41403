// Package interaction implements the ratbag object protocol.
//
// Every entity is addressed by an object path:
//
//	/org/freedesktop/ratbag1                                   Manager
//	/org/freedesktop/ratbag1/device/<sysname>                  Device
//	/org/freedesktop/ratbag1/device/<sysname>/p<i>             Profile
//	/org/freedesktop/ratbag1/device/<sysname>/p<i>/r<j>        Resolution
//	/org/freedesktop/ratbag1/device/<sysname>/p<i>/b<j>        Button
//	/org/freedesktop/ratbag1/device/<sysname>/p<i>/l<j>        Led
//
// Four operations act on a path: Get and Set a property, Call a method and
// GetAll readable properties. Each entity kind has a fixed member table;
// Members lists it.
//
// # Server Usage
//
//	srv := interaction.NewServer(mgr, interaction.WithLogger(logger))
//	ts, _ := transport.NewServer(transport.ServerConfig{
//	    OnMessage: func(c *transport.ServerConn, msg []byte) {
//	        srv.HandleMessage(ctx, c, msg)
//	    },
//	})
//
// # Client Usage
//
//	client, err := interaction.Connect(ctx, "unix:/run/ratbagd/ratbagd.sock", transport.ClientConfig{})
//	path, err := client.LoadTestDevice(ctx, `{"profiles": [{"is_active": true}]}`)
//	err = client.Set(ctx, path+"/p0", "ReportRate", uint32(500))
//	err = client.Commit(ctx, path)
//
// Error statuses come back as *StatusError, which unwraps to the model's
// sentinel errors.
package interaction
