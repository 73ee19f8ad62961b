package main

// Version identifies this build, printed by the version subcommand and
// logged once at startup.
var Version = "0.1.0-dev"
