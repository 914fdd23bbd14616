package verifier

// DefaultRules returns the built-in policy rules. Callers may append their own.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "cmd-rm-rf",
			Description: "Recursive forced deletion (rm -rf)",
			Target:      TargetArtifact,
			Pattern:     `(?i)\brm\s+-[a-z]*(?:rf|fr)[a-z]*`,
			Action:      ActionDeny,
			Category:    "destructive-shell",
			Enabled:     true,
		},
		{
			ID:          "cmd-mkfs",
			Description: "Filesystem formatting (mkfs)",
			Target:      TargetArtifact,
			Pattern:     `(?i)\bmkfs(?:\.[a-z0-9]+)?\b`,
			Action:      ActionDeny,
			Category:    "destructive-shell",
			Enabled:     true,
		},
		{
			ID:          "cmd-dd-device",
			Description: "Raw write to a block device with dd",
			Target:      TargetArtifact,
			Pattern:     `(?i)\bdd\b[^\n]*\bof=/dev/(?:sd|hd|nvme|disk|xvd)`,
			Action:      ActionDeny,
			Category:    "destructive-shell",
			Enabled:     true,
		},
		{
			ID:          "cmd-fork-bomb",
			Description: "Shell fork bomb",
			Target:      TargetArtifact,
			Pattern:     `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
			Action:      ActionDeny,
			Category:    "destructive-shell",
			Enabled:     true,
		},
		{
			ID:          "cmd-curl-pipe-shell",
			Description: "Downloaded script piped into a shell",
			Target:      TargetArtifact,
			Pattern:     `(?i)\b(?:curl|wget)\b[^\n|]*\|\s*(?:sudo\s+)?(?:ba|z)?sh\b`,
			Action:      ActionDeny,
			Category:    "remote-exec",
			Enabled:     true,
		},
		{
			ID:          "cmd-chmod-777-root",
			Description: "World-writable permissions on the filesystem root",
			Target:      TargetArtifact,
			Pattern:     `(?i)\bchmod\s+(?:-R\s+)?777\s+/(?:\s|$)`,
			Action:      ActionDeny,
			Category:    "permissions",
			Enabled:     true,
		},
		{
			ID:          "secret-private-key",
			Description: "Embedded private key material",
			Target:      TargetArtifact,
			Pattern:     `-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`,
			Action:      ActionDeny,
			Category:    "secrets",
			Enabled:     true,
		},
		{
			ID:          "secret-aws-access-key",
			Description: "Embedded AWS access key id",
			Target:      TargetArtifact,
			Pattern:     `\bAKIA[0-9A-Z]{16}\b`,
			Action:      ActionDeny,
			Category:    "secrets",
			Enabled:     true,
		},
		{
			ID:          "sql-drop",
			Description: "DROP TABLE or DROP DATABASE statement",
			Target:      TargetArtifact,
			Pattern:     `(?i)\bDROP\s+(?:TABLE|DATABASE)\b`,
			Action:      ActionDeny,
			Category:    "destructive-sql",
			Enabled:     true,
		},
		{
			ID:          "task-malware",
			Description: "Task requests malware",
			Target:      TargetTask,
			Pattern:     `(?i)\b(?:write|create|build|make)\s+(?:a\s+|an\s+)?(?:ransomware|keylogger|credential[\s-]stealer|botnet)\b`,
			Action:      ActionDeny,
			Category:    "malicious-intent",
			Enabled:     true,
		},
		{
			ID:          "allow-schema-migration",
			Description: "Schema migrations may drop tables",
			Target:      TargetTask,
			Pattern:     `(?i)\b(?:schema\s+)?migration\b`,
			Action:      ActionAllow,
			Category:    "destructive-sql",
			Enabled:     false,
		},
	}
}
