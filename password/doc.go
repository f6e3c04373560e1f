// Package password is the credential hasher: Argon2id digests in PHC string
// format.
//
// # Output format
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Every digest carries its own salt and cost parameters, so [Hasher.Verify]
// works across parameter changes and [Hasher.NeedsRehash] reports digests that
// were produced with weaker settings than the hasher's current ones.
//
// # What this package must NOT do
//
//   - Enforce password policy. Length bounds belong to the engine.
//   - Return errors from Verify. A malformed digest and a wrong password are
//     indistinguishable to the caller.
//   - Import any other authcore package.
package password
