// Package provider is a client for the Jimeng text-to-image model served
// by the Volcengine visual API.
//
// Every call is signed by an hmacsig.Transport. Batch generation paces
// calls with a token bucket and runs them on a bounded worker pool; each
// keyword yields exactly one BatchResult, in input order, and a failing
// keyword never affects another.
//
//	c, err := provider.New(provider.Config{
//		Credentials: hmacsig.CredentialsFromEnv(),
//	})
//	results := c.GenerateBatch(ctx, "一只橘猫", []string{"开心", "难过"})
package provider
