// Package config provides configuration parsing for fiberui projects.
//
// The configuration is stored in fiberui.json at the project root and is
// loaded through viper, so every key can be overridden with a FIBERUI_
// environment variable (dots become underscores).
//
// # Configuration File Structure
//
//	{
//	  "registry": "embedded",
//	  "target": "src",
//	  "paths": {
//	    "components": "components",
//	    "hooks": "hooks",
//	    "lib": "lib"
//	  },
//	  "install": {
//	    "overwrite": false,
//	    "concurrency": 4
//	  },
//	  "installed": ["button"],
//	  "metrics": {
//	    "textfile": ".fiberui/metrics.prom"
//	  },
//	  "log": {
//	    "level": "warn",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Target:", cfg.TargetPath())
package config
