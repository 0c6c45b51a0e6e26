package repositories

// Set bundles one implementation of every repository with the transaction
// manager that coordinates them
type Set struct {
	Users        UserRepository
	Folders      FolderRepository
	Files        FileRepository
	Shares       ShareRepository
	PublicShares PublicShareRepository
	Orphans      OrphanRepository
	Tx           TransactionManager
}
