// Package client is the resource layer of the data lake API: packages,
// datasets, metadata, the cart and search.
//
// Every call signs a fresh token, sends one request and returns the JSON the
// server answered with, whatever its status. Use CheckStatus when a non-2xx
// status should be an error.
//
//	c, err := client.New(&client.Config{
//		EndpointHost: "api.example.com",
//		AccessKey:    "ak1",
//		SecretKey:    "s3cr3t",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := c.DescribePackage(ctx, client.PackageParams{PackageID: id})
//	if err == nil {
//		err = client.CheckStatus(resp)
//	}
//
// Dataset uploads run register, upload and confirm in order:
//
//	res, err := c.UploadFile(ctx, packageID, "./readings.csv", "")
//	if datalake.FailedAt(err, datalake.StageUpload) {
//		// the dataset record exists; see CleanupOrphans
//	}
//
// # Profiles
//
// Credentials live in ~/.datalake/config.yaml, one profile per API:
//
//	cfgFile, err := client.LoadConfigFile(client.DefaultConfigPath())
//	profile, err := cfgFile.GetProfile("production")
//	c, err := client.New(client.ConfigFromProfile(profile))
package client
