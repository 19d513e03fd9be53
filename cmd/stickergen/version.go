package main

// VersionCommand prints the build version.
type VersionCommand struct {
	*Meta
}

func (c *VersionCommand) Run(_ []string) int {
	c.UI.Output(appName + " " + version)
	return 0
}

func (c *VersionCommand) Help() string {
	return "Usage: stickergen version"
}

func (c *VersionCommand) Synopsis() string {
	return "Prints the version."
}
