// Package salesforce is a minimal client for the Salesforce REST and Tooling
// APIs covering what the cleanup pipeline needs: SOQL queries, Organization
// classification, flow-version discovery, and composite bulk deletes.
package salesforce
